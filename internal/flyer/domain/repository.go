package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, flyer *Flyer) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Flyer, error)
	FindByQRCode(ctx context.Context, db *gorm.DB, code string) (*Flyer, error)
	List(ctx context.Context, db *gorm.DB, filter ListFlyerFilter, page pagination.Pagination) ([]*Flyer, error)
	ListItems(ctx context.Context, db *gorm.DB, flyerID snowflake.ID) ([]FlyerItem, error)
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status Status) (int64, error)
	UpdateQRCode(ctx context.Context, db *gorm.DB, id snowflake.ID, code string) (int64, error)
	IncrementViewCount(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	UpdateDetails(ctx context.Context, db *gorm.DB, flyer *Flyer) error
	ReplaceItems(ctx context.Context, db *gorm.DB, flyerID snowflake.ID, items []FlyerItem) error
	HasRewards(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)

	ReplaceQuizzes(ctx context.Context, db *gorm.DB, flyerID snowflake.ID, quizzes []Quiz) error
	ListQuizzes(ctx context.Context, db *gorm.DB, flyerID snowflake.ID) ([]Quiz, error)
	FindQuiz(ctx context.Context, db *gorm.DB, flyerID, quizID snowflake.ID) (*Quiz, error)
}
