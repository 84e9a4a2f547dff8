package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Withdrawal is a request to cash out points. It moves from pending to
// approved or rejected exactly once.
type Withdrawal struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID        snowflake.ID `gorm:"not null;index" json:"userId"`
	Amount        int64        `gorm:"not null" json:"amount"`
	Status        Status       `gorm:"type:text;not null;default:'pending';index" json:"status"`
	BankName      string       `gorm:"type:text;not null" json:"bankName"`
	AccountNumber string       `gorm:"type:text;not null" json:"accountNumber"`
	AccountHolder string       `gorm:"type:text;not null" json:"accountHolder"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	ProcessedAt   *time.Time   `json:"processedAt,omitempty"`
}

func (Withdrawal) TableName() string { return "withdrawals" }

func (w Withdrawal) IsPending() bool { return w.Status == StatusPending }

func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusPending, StatusApproved, StatusRejected:
		return Status(raw), true
	default:
		return "", false
	}
}

// ParseDecision accepts the decision verb or the target status name.
func ParseDecision(raw string) (Decision, bool) {
	switch raw {
	case string(DecisionApprove), string(StatusApproved):
		return DecisionApprove, true
	case string(DecisionReject), string(StatusRejected):
		return DecisionReject, true
	default:
		return "", false
	}
}
