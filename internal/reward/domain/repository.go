package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertShare(ctx context.Context, db *gorm.DB, record *ShareRecord) error
	InsertQuizAttempt(ctx context.Context, db *gorm.DB, attempt *QuizAttempt) error
	InsertVisit(ctx context.Context, db *gorm.DB, visit *VisitVerification) error
	HasAttemptedQuiz(ctx context.Context, db *gorm.DB, userID, flyerID snowflake.ID) (bool, error)

	// DebitBudget decrements a business budget only while it covers amount.
	DebitBudget(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, amount int64, now time.Time) (int64, error)
	IncrementShareCount(ctx context.Context, db *gorm.DB, flyerID snowflake.ID) error

	// History reads return newest first, at most limit rows.
	ListShares(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]ShareHistoryItem, error)
	ListQuizAttempts(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]QuizHistoryItem, error)
	ListVisits(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]VisitHistoryItem, error)
}
