package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/internal/budget/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCharge(ctx context.Context, db *gorm.DB, charge *domain.BudgetCharge) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO budget_charges (id, user_id, amount, method, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		charge.ID,
		charge.UserID,
		charge.Amount,
		charge.Method,
		charge.CreatedAt,
	).Error
}

func (r *repo) CreditBudget(ctx context.Context, db *gorm.DB, userID snowflake.ID, amount int64, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users SET point_budget = point_budget + ?, updated_at = ?
		 WHERE id = ? AND role = 'business'`,
		amount, now, userID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListCharges(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]domain.BudgetCharge, error) {
	var charges []domain.BudgetCharge
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&charges).Error
	return charges, err
}

func (r *repo) Stats(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (domain.Stats, error) {
	var stats domain.Stats
	err := db.WithContext(ctx).Raw(
		`SELECT
			(SELECT COUNT(*) FROM flyers WHERE owner_id = @owner) AS flyers,
			(SELECT COALESCE(SUM(view_count), 0) FROM flyers WHERE owner_id = @owner) AS views,
			(SELECT COUNT(*) FROM share_records s JOIN flyers f ON f.id = s.flyer_id WHERE f.owner_id = @owner) AS shares,
			(SELECT COUNT(*) FROM quiz_attempts q JOIN flyers f ON f.id = q.flyer_id WHERE f.owner_id = @owner) AS quiz_attempts,
			(SELECT COUNT(*) FROM quiz_attempts q JOIN flyers f ON f.id = q.flyer_id WHERE f.owner_id = @owner AND q.is_correct) AS quiz_correct,
			(SELECT COUNT(*) FROM visit_verifications v JOIN flyers f ON f.id = v.flyer_id WHERE f.owner_id = @owner) AS visits,
			(SELECT COALESCE(SUM(s.points), 0) FROM share_records s JOIN flyers f ON f.id = s.flyer_id WHERE f.owner_id = @owner)
			+ (SELECT COALESCE(SUM(q.points_earned), 0) FROM quiz_attempts q JOIN flyers f ON f.id = q.flyer_id WHERE f.owner_id = @owner)
			+ (SELECT COALESCE(SUM(v.points_earned), 0) FROM visit_verifications v JOIN flyers f ON f.id = v.flyer_id WHERE f.owner_id = @owner) AS points_distributed,
			(SELECT COALESCE(MAX(point_budget), 0) FROM users WHERE id = @owner) AS budget`,
		map[string]any{"owner": ownerID},
	).Scan(&stats).Error
	return stats, err
}
