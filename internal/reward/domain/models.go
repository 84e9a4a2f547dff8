package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type EventType string

const (
	EventTypeShare EventType = "share"
	EventTypeQuiz  EventType = "quiz"
	EventTypeVisit EventType = "visit"
)

const (
	FundingPlatform = "platform"
	FundingBusiness = "business"
)

// Decision is the outcome of evaluating an event: how many points to pay
// and who pays them. FundedBy is zero when the platform pays.
type Decision struct {
	EventType   EventType
	Amount      int64
	FundedBy    snowflake.ID
	Description string
}

func (d Decision) IsBusinessFunded() bool { return d.FundedBy != 0 }

func (d Decision) FundingSource() string {
	if d.IsBusinessFunded() {
		return FundingBusiness
	}
	return FundingPlatform
}

// ShareRecord proves a share reward was paid. One per user and flyer.
type ShareRecord struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID    snowflake.ID `gorm:"not null;uniqueIndex:ux_share_records_user_flyer,priority:1" json:"userId"`
	FlyerID   snowflake.ID `gorm:"not null;uniqueIndex:ux_share_records_user_flyer,priority:2;index" json:"flyerId"`
	Points    int64        `gorm:"not null;default:0" json:"points"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

func (ShareRecord) TableName() string { return "share_records" }

// QuizAttempt records the single quiz answer a user may submit per flyer,
// whether or not it was correct.
type QuizAttempt struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID          snowflake.ID `gorm:"not null;uniqueIndex:ux_quiz_attempts_user_flyer,priority:1" json:"userId"`
	FlyerID         snowflake.ID `gorm:"not null;uniqueIndex:ux_quiz_attempts_user_flyer,priority:2;index" json:"flyerId"`
	QuizID          snowflake.ID `gorm:"not null" json:"quizId"`
	SubmittedAnswer string       `gorm:"type:text;not null" json:"submittedAnswer"`
	IsCorrect       bool         `gorm:"not null" json:"isCorrect"`
	PointsEarned    int64        `gorm:"not null;default:0" json:"pointsEarned"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

func (QuizAttempt) TableName() string { return "quiz_attempts" }

// VisitVerification is scoped to a calendar day so QR visits renew daily.
type VisitVerification struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID       snowflake.ID `gorm:"not null;uniqueIndex:ux_visit_verifications_user_flyer_day,priority:1" json:"userId"`
	FlyerID      snowflake.ID `gorm:"not null;uniqueIndex:ux_visit_verifications_user_flyer_day,priority:2;index" json:"flyerId"`
	VisitDate    string       `gorm:"type:text;not null;uniqueIndex:ux_visit_verifications_user_flyer_day,priority:3" json:"visitDate"`
	PointsEarned int64        `gorm:"not null;default:0" json:"pointsEarned"`
	CreatedAt    time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

func (VisitVerification) TableName() string { return "visit_verifications" }

// ShareHistoryItem is a paid share joined with the flyer it was for.
type ShareHistoryItem struct {
	ID         snowflake.ID `json:"id"`
	FlyerID    snowflake.ID `json:"flyerId"`
	StoreName  string       `json:"storeName"`
	FlyerTitle string       `json:"flyerTitle"`
	Points     int64        `json:"points"`
	SharedAt   time.Time    `json:"sharedAt"`
}

type QuizHistoryItem struct {
	ID              snowflake.ID `json:"id"`
	FlyerID         snowflake.ID `json:"flyerId"`
	QuizID          snowflake.ID `json:"quizId"`
	StoreName       string       `json:"storeName"`
	FlyerTitle      string       `json:"flyerTitle"`
	Question        string       `json:"question"`
	SubmittedAnswer string       `json:"submittedAnswer"`
	IsCorrect       bool         `json:"isCorrect"`
	PointsEarned    int64        `json:"pointsEarned"`
	AttemptedAt     time.Time    `json:"attemptedAt"`
}

type VisitHistoryItem struct {
	ID           snowflake.ID `json:"id"`
	FlyerID      snowflake.ID `json:"flyerId"`
	StoreName    string       `json:"storeName"`
	FlyerTitle   string       `json:"flyerTitle"`
	VisitDate    string       `json:"visitDate"`
	PointsEarned int64        `json:"pointsEarned"`
	VerifiedAt   time.Time    `json:"verifiedAt"`
}
