package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/internal/reward/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Evidence rows are plain INSERTs: the unique index is the duplicate check.

func (r *repo) InsertShare(ctx context.Context, db *gorm.DB, record *domain.ShareRecord) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO share_records (id, user_id, flyer_id, points, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		record.ID,
		record.UserID,
		record.FlyerID,
		record.Points,
		record.CreatedAt,
	).Error
}

func (r *repo) InsertQuizAttempt(ctx context.Context, db *gorm.DB, attempt *domain.QuizAttempt) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO quiz_attempts (id, user_id, flyer_id, quiz_id, submitted_answer, is_correct, points_earned, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		attempt.ID,
		attempt.UserID,
		attempt.FlyerID,
		attempt.QuizID,
		attempt.SubmittedAnswer,
		attempt.IsCorrect,
		attempt.PointsEarned,
		attempt.CreatedAt,
	).Error
}

func (r *repo) InsertVisit(ctx context.Context, db *gorm.DB, visit *domain.VisitVerification) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO visit_verifications (id, user_id, flyer_id, visit_date, points_earned, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		visit.ID,
		visit.UserID,
		visit.FlyerID,
		visit.VisitDate,
		visit.PointsEarned,
		visit.CreatedAt,
	).Error
}

func (r *repo) HasAttemptedQuiz(ctx context.Context, db *gorm.DB, userID, flyerID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.QuizAttempt{}).
		Where("user_id = ? AND flyer_id = ?", userID, flyerID).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) DebitBudget(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, amount int64, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users SET point_budget = point_budget - ?, updated_at = ?
		 WHERE id = ? AND role = 'business' AND point_budget >= ?`,
		amount, now, ownerID, amount,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) IncrementShareCount(ctx context.Context, db *gorm.DB, flyerID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`UPDATE flyers SET share_count = share_count + 1 WHERE id = ?`,
		flyerID,
	).Error
}

func (r *repo) ListShares(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]domain.ShareHistoryItem, error) {
	var items []domain.ShareHistoryItem
	err := db.WithContext(ctx).Raw(
		`SELECT sr.id, sr.flyer_id, f.store_name, f.title AS flyer_title, sr.points, sr.created_at AS shared_at
		 FROM share_records sr
		 JOIN flyers f ON f.id = sr.flyer_id
		 WHERE sr.user_id = ?
		 ORDER BY sr.created_at DESC, sr.id DESC
		 LIMIT ?`,
		userID, limit,
	).Scan(&items).Error
	return items, err
}

func (r *repo) ListQuizAttempts(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]domain.QuizHistoryItem, error) {
	var items []domain.QuizHistoryItem
	err := db.WithContext(ctx).Raw(
		`SELECT qa.id, qa.flyer_id, qa.quiz_id, f.store_name, f.title AS flyer_title, q.question,
		        qa.submitted_answer, qa.is_correct, qa.points_earned, qa.created_at AS attempted_at
		 FROM quiz_attempts qa
		 JOIN flyers f ON f.id = qa.flyer_id
		 JOIN quizzes q ON q.id = qa.quiz_id
		 WHERE qa.user_id = ?
		 ORDER BY qa.created_at DESC, qa.id DESC
		 LIMIT ?`,
		userID, limit,
	).Scan(&items).Error
	return items, err
}

func (r *repo) ListVisits(ctx context.Context, db *gorm.DB, userID snowflake.ID, limit int) ([]domain.VisitHistoryItem, error) {
	var items []domain.VisitHistoryItem
	err := db.WithContext(ctx).Raw(
		`SELECT vv.id, vv.flyer_id, f.store_name, f.title AS flyer_title, vv.visit_date,
		        vv.points_earned, vv.created_at AS verified_at
		 FROM visit_verifications vv
		 JOIN flyers f ON f.id = vv.flyer_id
		 WHERE vv.user_id = ?
		 ORDER BY vv.created_at DESC, vv.id DESC
		 LIMIT ?`,
		userID, limit,
	).Scan(&items).Error
	return items, err
}
