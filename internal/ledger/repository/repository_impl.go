package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, txn *domain.PointTransaction) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO point_transactions (id, user_id, amount, type, source_type, source_id, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID,
		txn.UserID,
		txn.Amount,
		txn.Type,
		txn.SourceType,
		txn.SourceID,
		txn.Description,
		txn.CreatedAt,
	).Error
}

func (r *repo) CreditBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, amount int64, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users SET point_balance = point_balance + ?, updated_at = ?
		 WHERE id = ? AND role <> 'business'`,
		amount, now, userID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) DebitBalance(ctx context.Context, db *gorm.DB, userID snowflake.ID, amount int64, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users SET point_balance = point_balance - ?, updated_at = ?
		 WHERE id = ? AND point_balance >= ?`,
		amount, now, userID, amount,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) Balance(ctx context.Context, db *gorm.DB, userID snowflake.ID) (int64, bool, error) {
	var rows []struct {
		PointBalance int64
	}
	err := db.WithContext(ctx).Raw(
		`SELECT point_balance FROM users WHERE id = ?`, userID,
	).Scan(&rows).Error
	if err != nil {
		return 0, false, err
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	return rows[0].PointBalance, true, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]domain.PointTransaction, error) {
	var txns []domain.PointTransaction
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&txns).Error
	return txns, err
}

func (r *repo) SumByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) (domain.Sums, error) {
	var sums domain.Sums
	err := db.WithContext(ctx).Raw(
		`SELECT
			COALESCE(SUM(CASE WHEN type = 'earn' THEN amount ELSE 0 END), 0) AS earned,
			COALESCE(SUM(CASE WHEN type = 'use' THEN amount ELSE 0 END), 0) AS used
		 FROM point_transactions WHERE user_id = ?`,
		userID,
	).Scan(&sums).Error
	return sums, err
}

func (r *repo) Totals(ctx context.Context, db *gorm.DB) (domain.Totals, error) {
	var totals domain.Totals
	err := db.WithContext(ctx).Raw(
		`SELECT
			(SELECT COUNT(*) FROM users) AS users,
			(SELECT COUNT(*) FROM users WHERE role = 'business') AS businesses,
			(SELECT COUNT(*) FROM flyers) AS flyers,
			(SELECT COALESCE(SUM(amount), 0) FROM point_transactions WHERE type = 'earn') AS points_earned,
			(SELECT COALESCE(SUM(amount), 0) FROM point_transactions WHERE type = 'use') AS points_used,
			(SELECT COUNT(*) FROM share_records) AS shares,
			(SELECT COUNT(*) FROM withdrawals WHERE status = 'pending') AS pending_withdrawals`,
	).Scan(&totals).Error
	return totals, err
}
