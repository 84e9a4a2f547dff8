package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleUser     Role = "user"
	RoleBusiness Role = "business"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

const ProviderLocal = "local"

// User is an account that either earns points (RoleUser) or funds rewards
// from a prepaid budget (RoleBusiness).
type User struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	Nickname         string       `gorm:"type:text;not null" json:"nickname"`
	Email            *string      `gorm:"type:text;uniqueIndex" json:"email,omitempty"`
	PasswordHash     *string      `gorm:"type:text" json:"-"`
	Provider         string       `gorm:"type:text;not null;default:'local';uniqueIndex:ux_users_provider_identity" json:"provider"`
	ProviderID       *string      `gorm:"type:text;uniqueIndex:ux_users_provider_identity" json:"-"`
	Role             Role         `gorm:"type:text;not null;default:'user'" json:"role"`
	Status           Status       `gorm:"type:text;not null;default:'active'" json:"status"`
	BusinessApproved bool         `gorm:"not null;default:false" json:"businessApproved"`
	PointBalance     int64        `gorm:"not null;default:0" json:"points"`
	PointBudget      int64        `gorm:"not null;default:0" json:"pointBudget"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

func (u User) IsBusiness() bool { return u.Role == RoleBusiness }

func (u User) IsActive() bool { return u.Status == StatusActive }

func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RoleUser, RoleBusiness:
		return Role(raw), true
	default:
		return "", false
	}
}

func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusActive, StatusSuspended:
		return Status(raw), true
	default:
		return "", false
	}
}
