package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertTransaction(ctx context.Context, db *gorm.DB, txn *PointTransaction) error
	// CreditBalance adds amount to a non-business account.
	CreditBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, amount int64, now time.Time) (int64, error)
	// DebitBalance subtracts amount only while the balance covers it.
	DebitBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, amount int64, now time.Time) (int64, error)
	Balance(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, bool, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]PointTransaction, error)
	SumByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (Sums, error)
	Totals(ctx context.Context, db *gorm.DB) (Totals, error)
}
