package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusApproved Status = "approved"
	StatusPending  Status = "pending"
	StatusBlocked  Status = "blocked"
)

// DateLayout is the calendar-date format of ValidFrom and ValidUntil.
const DateLayout = "2006-01-02"

// Flyer is a store's promotional offer. When OwnerID is set the owner's
// point budget funds every reward paid for it, otherwise the platform does.
type Flyer struct {
	ID         snowflake.ID                `gorm:"primaryKey" json:"id"`
	OwnerID    *snowflake.ID               `gorm:"index" json:"ownerId,omitempty"`
	StoreName  string                      `gorm:"type:text;not null" json:"storeName"`
	Slug       string                      `gorm:"type:text;not null;index" json:"slug"`
	Category   string                      `gorm:"type:text;not null;index" json:"category"`
	Title      string                      `gorm:"type:text;not null" json:"title"`
	Subtitle   string                      `gorm:"type:text;not null;default:''" json:"subtitle"`
	Tags       datatypes.JSONSlice[string] `json:"tags"`
	ValidFrom  string                      `gorm:"type:text;not null" json:"validFrom"`
	ValidUntil string                      `gorm:"type:text;not null" json:"validUntil"`
	SharePoint int64                       `gorm:"not null;default:10" json:"sharePoint"`
	QRPoint    int64                       `gorm:"column:qr_point;not null;default:0" json:"qrPoint"`
	QRCode     *string                     `gorm:"column:qr_code;type:text;uniqueIndex" json:"qrCode,omitempty"`
	ShareCount int64                       `gorm:"not null;default:0" json:"shareCount"`
	ViewCount  int64                       `gorm:"not null;default:0" json:"viewCount"`
	Status     Status                      `gorm:"type:text;not null;default:'approved';index" json:"status"`
	Items      []FlyerItem                 `gorm:"foreignKey:FlyerID" json:"items,omitempty"`
	CreatedAt  time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt  time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (Flyer) TableName() string { return "flyers" }

func (f Flyer) IsBusinessFunded() bool { return f.OwnerID != nil && *f.OwnerID != 0 }

func (f Flyer) OwnedBy(userID snowflake.ID) bool {
	return f.OwnerID != nil && *f.OwnerID == userID
}

type FlyerItem struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	FlyerID       snowflake.ID `gorm:"not null;index" json:"flyerId"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	OriginalPrice int64        `gorm:"not null" json:"originalPrice"`
	SalePrice     int64        `gorm:"not null" json:"salePrice"`
	SortOrder     int          `gorm:"not null;default:0" json:"sortOrder"`
}

func (FlyerItem) TableName() string { return "flyer_items" }

type Quiz struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	FlyerID   snowflake.ID `gorm:"not null;index" json:"flyerId"`
	Question  string       `gorm:"type:text;not null" json:"question"`
	Answer    string       `gorm:"type:text;not null" json:"-"`
	Point     int64        `gorm:"not null;default:10" json:"point"`
	SortOrder int          `gorm:"not null;default:0" json:"sortOrder"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

func (Quiz) TableName() string { return "quizzes" }

func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusApproved, StatusPending, StatusBlocked:
		return Status(raw), true
	default:
		return "", false
	}
}
