package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// EntryType is the sign of a point transaction: earn credits the balance,
// use debits it.
type EntryType string

const (
	EntryTypeEarn EntryType = "earn"
	EntryTypeUse  EntryType = "use"
)

type SourceType string

const (
	// earn
	SourceTypeShare SourceType = "share"
	SourceTypeQuiz  SourceType = "quiz"
	SourceTypeVisit SourceType = "visit"

	// use
	SourceTypePointUse   SourceType = "point_use"
	SourceTypeWithdrawal SourceType = "withdrawal"
)

// PointTransaction is an append-only ledger line. Amount is always positive.
type PointTransaction struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	UserID      snowflake.ID  `gorm:"not null;index:idx_point_transactions_user_created,priority:1" json:"userId"`
	Amount      int64         `gorm:"not null" json:"amount"`
	Type        EntryType     `gorm:"type:text;not null" json:"type"`
	SourceType  SourceType    `gorm:"type:text;not null" json:"sourceType"`
	SourceID    *snowflake.ID `json:"sourceId,omitempty"`
	Description string        `gorm:"type:text;not null" json:"description"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP;index:idx_point_transactions_user_created,priority:2" json:"createdAt"`
}

func (PointTransaction) TableName() string { return "point_transactions" }

// Sums aggregates a user's ledger lines.
type Sums struct {
	Earned int64
	Used   int64
}

type Totals struct {
	Users              int64 `json:"totalUsers"`
	Businesses         int64 `json:"totalBusinesses"`
	Flyers             int64 `json:"totalFlyers"`
	PointsEarned       int64 `json:"totalPoints"`
	PointsUsed         int64 `json:"totalPointsUsed"`
	Shares             int64 `json:"totalShares"`
	PendingWithdrawals int64 `json:"pendingWithdrawals"`
}
