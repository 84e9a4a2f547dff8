package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertCharge(ctx context.Context, db *gorm.DB, charge *BudgetCharge) error
	CreditBudget(ctx context.Context, db *gorm.DB, userID snowflake.ID, amount int64, now time.Time) (int64, error)
	ListCharges(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]BudgetCharge, error)
	Stats(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (Stats, error)
}
