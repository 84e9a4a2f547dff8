package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	UserID *snowflake.ID
	Status Status
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, withdrawal *Withdrawal) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Withdrawal, error)
	// FindForUpdate locks the row where the dialect supports it.
	FindForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Withdrawal, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Withdrawal, error)
	// Settle moves a pending withdrawal to status; zero rows means it was
	// no longer pending.
	Settle(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status, processedAt time.Time) (int64, error)
}
