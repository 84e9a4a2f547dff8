package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/internal/flyer/domain"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Insert writes the flyer together with its items.
func (r *repo) Insert(ctx context.Context, db *gorm.DB, flyer *domain.Flyer) error {
	return db.WithContext(ctx).Create(flyer).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Flyer, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByQRCode(ctx context.Context, db *gorm.DB, code string) (*domain.Flyer, error) {
	return r.findOne(ctx, db, "qr_code = ?", code)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Flyer, error) {
	var flyer domain.Flyer
	err := db.WithContext(ctx).Where(query, args...).Take(&flyer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &flyer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFlyerFilter, page pagination.Pagination) ([]*domain.Flyer, error) {
	stmt := db.WithContext(ctx).Model(&domain.Flyer{})
	if filter.Category != "" {
		stmt = stmt.Where("category = ?", filter.Category)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		stmt = stmt.Where("(store_name LIKE ? OR title LIKE ?)", like, like)
	}
	if filter.OwnerID != nil {
		stmt = stmt.Where("owner_id = ?", *filter.OwnerID)
	}
	if len(filter.Statuses) > 0 {
		stmt = stmt.Where("status IN ?", filter.Statuses)
	}
	stmt, err := pagination.Apply(stmt, page)
	if err != nil {
		return nil, err
	}

	var flyers []*domain.Flyer
	if err := stmt.Find(&flyers).Error; err != nil {
		return nil, err
	}
	return flyers, nil
}

func (r *repo) ListItems(ctx context.Context, db *gorm.DB, flyerID snowflake.ID) ([]domain.FlyerItem, error) {
	var items []domain.FlyerItem
	err := db.WithContext(ctx).
		Where("flyer_id = ?", flyerID).
		Order("sort_order asc, id asc").
		Find(&items).Error
	return items, err
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status) (int64, error) {
	res := db.WithContext(ctx).Exec(`UPDATE flyers SET status = ? WHERE id = ?`, status, id)
	return res.RowsAffected, res.Error
}

func (r *repo) UpdateQRCode(ctx context.Context, db *gorm.DB, id snowflake.ID, code string) (int64, error) {
	res := db.WithContext(ctx).Exec(`UPDATE flyers SET qr_code = ? WHERE id = ?`, code, id)
	return res.RowsAffected, res.Error
}

func (r *repo) IncrementViewCount(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`UPDATE flyers SET view_count = view_count + 1 WHERE id = ?`, id).Error
}

func (r *repo) UpdateDetails(ctx context.Context, db *gorm.DB, flyer *domain.Flyer) error {
	return db.WithContext(ctx).
		Model(&domain.Flyer{}).
		Where("id = ?", flyer.ID).
		Updates(map[string]any{
			"store_name":  flyer.StoreName,
			"slug":        flyer.Slug,
			"category":    flyer.Category,
			"title":       flyer.Title,
			"subtitle":    flyer.Subtitle,
			"tags":        flyer.Tags,
			"valid_from":  flyer.ValidFrom,
			"valid_until": flyer.ValidUntil,
			"share_point": flyer.SharePoint,
			"qr_point":    flyer.QRPoint,
			"updated_at":  flyer.UpdatedAt,
		}).Error
}

func (r *repo) ReplaceItems(ctx context.Context, db *gorm.DB, flyerID snowflake.ID, items []domain.FlyerItem) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM flyer_items WHERE flyer_id = ?`, flyerID).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

// HasRewards reports whether any share, quiz or visit evidence points at the flyer.
func (r *repo) HasRewards(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`
		SELECT
			(SELECT COUNT(*) FROM share_records WHERE flyer_id = ?) +
			(SELECT COUNT(*) FROM quiz_attempts WHERE flyer_id = ?) +
			(SELECT COUNT(*) FROM visit_verifications WHERE flyer_id = ?)
	`, id, id, id).Scan(&count).Error
	return count > 0, err
}

// Delete removes the flyer with its items and quizzes.
func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	if err := db.WithContext(ctx).Exec(`DELETE FROM flyer_items WHERE flyer_id = ?`, id).Error; err != nil {
		return 0, err
	}
	if err := db.WithContext(ctx).Exec(`DELETE FROM quizzes WHERE flyer_id = ?`, id).Error; err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).Exec(`DELETE FROM flyers WHERE id = ?`, id)
	return res.RowsAffected, res.Error
}

func (r *repo) ReplaceQuizzes(ctx context.Context, db *gorm.DB, flyerID snowflake.ID, quizzes []domain.Quiz) error {
	if err := db.WithContext(ctx).Exec(`DELETE FROM quizzes WHERE flyer_id = ?`, flyerID).Error; err != nil {
		return err
	}
	if len(quizzes) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&quizzes).Error
}

func (r *repo) ListQuizzes(ctx context.Context, db *gorm.DB, flyerID snowflake.ID) ([]domain.Quiz, error) {
	var quizzes []domain.Quiz
	err := db.WithContext(ctx).
		Where("flyer_id = ?", flyerID).
		Order("sort_order asc, id asc").
		Find(&quizzes).Error
	return quizzes, err
}

func (r *repo) FindQuiz(ctx context.Context, db *gorm.DB, flyerID, quizID snowflake.ID) (*domain.Quiz, error) {
	var quiz domain.Quiz
	err := db.WithContext(ctx).
		Where("id = ? AND flyer_id = ?", quizID, flyerID).
		Take(&quiz).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quiz, nil
}
