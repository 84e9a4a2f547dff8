package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	FindByProvider(ctx context.Context, db *gorm.DB, provider, providerID string) (*User, error)
	List(ctx context.Context, db *gorm.DB, filter ListUserFilter, page pagination.Pagination) ([]*User, error)
	UpdateNickname(ctx context.Context, db *gorm.DB, id snowflake.ID, nickname string, now time.Time) (int64, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, now time.Time) (int64, error)
	UpdateBusinessApproval(ctx context.Context, db *gorm.DB, id snowflake.ID, approved bool, now time.Time) (int64, error)
}
