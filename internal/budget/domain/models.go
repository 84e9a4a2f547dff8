package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const MethodManual = "manual"

// BudgetCharge is an append-only record of a business topping up its
// point budget.
type BudgetCharge struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;index" json:"userId"`
	Amount    int64        `gorm:"not null" json:"amount"`
	Method    string       `gorm:"type:text;not null;default:'manual'" json:"method"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

func (BudgetCharge) TableName() string { return "budget_charges" }

// Stats summarizes the activity a business has funded.
type Stats struct {
	Flyers                int64   `json:"totalFlyers"`
	Views                 int64   `json:"totalViews"`
	Shares                int64   `json:"totalShares"`
	QuizAttempts          int64   `json:"totalQuizAttempts"`
	QuizCorrect           int64   `json:"totalQuizCorrect"`
	Visits                int64   `json:"totalVisits"`
	PointsDistributed     int64   `json:"pointsDistributed"`
	Budget                int64   `json:"pointBudget"`
	QuizParticipationRate float64 `json:"quizParticipationRate"`
}
