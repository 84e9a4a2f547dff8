package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/internal/settlement/domain"
	"github.com/smallbiznis/flyerpoint/pkg/db"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, withdrawal *domain.Withdrawal) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO withdrawals (id, user_id, amount, status, bank_name, account_number, account_holder, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		withdrawal.ID,
		withdrawal.UserID,
		withdrawal.Amount,
		withdrawal.Status,
		withdrawal.BankName,
		withdrawal.AccountNumber,
		withdrawal.AccountHolder,
		withdrawal.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Withdrawal, error) {
	return r.find(db.WithContext(ctx), id)
}

func (r *repo) FindForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.Withdrawal, error) {
	stmt := conn.WithContext(ctx)
	if db.SupportsRowLocking(conn) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.find(stmt, id)
}

func (r *repo) find(stmt *gorm.DB, id snowflake.ID) (*domain.Withdrawal, error) {
	var withdrawal domain.Withdrawal
	err := stmt.Where("id = ?", id).Take(&withdrawal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &withdrawal, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Withdrawal, error) {
	stmt := db.WithContext(ctx).Model(&domain.Withdrawal{})
	if filter.UserID != nil {
		stmt = stmt.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	stmt, err := pagination.Apply(stmt, page)
	if err != nil {
		return nil, err
	}

	var withdrawals []*domain.Withdrawal
	if err := stmt.Find(&withdrawals).Error; err != nil {
		return nil, err
	}
	return withdrawals, nil
}

func (r *repo) Settle(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status, processedAt time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE withdrawals SET status = ?, processed_at = ?
		 WHERE id = ? AND status = 'pending'`,
		status, processedAt, id,
	)
	return res.RowsAffected, res.Error
}
