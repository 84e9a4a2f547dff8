package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeAdmin  ActorType = "admin"
	ActorTypeUser   ActorType = "user"
	ActorTypeSystem ActorType = "system"
)

const (
	ActionWithdrawalApprove = "withdrawal.approve"
	ActionWithdrawalReject  = "withdrawal.reject"
	ActionUserStatus        = "user.status_update"
	ActionBusinessApproval  = "business.approval_update"
	ActionFlyerStatus       = "flyer.status_update"
)

const (
	TargetWithdrawal = "withdrawal"
	TargetUser       = "user"
	TargetFlyer      = "flyer"
)

type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	ActorType  string            `gorm:"type:text;not null" json:"actorType"`
	ActorID    *string           `gorm:"type:text" json:"actorId,omitempty"`
	Action     string            `gorm:"type:text;not null;index" json:"action"`
	TargetType string            `gorm:"type:text;not null" json:"targetType"`
	TargetID   *string           `gorm:"type:text;index" json:"targetId,omitempty"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	ActorID    string
	Since      time.Time
}
