package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/internal/user/domain"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	return r.findOne(ctx, db, "email = ?", email)
}

func (r *repo) FindByProvider(ctx context.Context, db *gorm.DB, provider, providerID string) (*domain.User, error) {
	return r.findOne(ctx, db, "provider = ? AND provider_id = ?", provider, providerID)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).Where(query, args...).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListUserFilter, page pagination.Pagination) ([]*domain.User, error) {
	stmt := db.WithContext(ctx).Model(&domain.User{})
	if filter.Role != "" {
		stmt = stmt.Where("role = ?", filter.Role)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		stmt = stmt.Where("(nickname LIKE ? OR email LIKE ?)", like, like)
	}
	if filter.Approved != nil {
		stmt = stmt.Where("business_approved = ?", *filter.Approved)
	}
	stmt, err := pagination.Apply(stmt, page)
	if err != nil {
		return nil, err
	}

	var users []*domain.User
	if err := stmt.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repo) UpdateNickname(ctx context.Context, db *gorm.DB, id snowflake.ID, nickname string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users SET nickname = ?, updated_at = ? WHERE id = ?`,
		nickname, now, id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.Status, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users SET status = ?, updated_at = ? WHERE id = ?`,
		status, now, id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) UpdateBusinessApproval(ctx context.Context, db *gorm.DB, id snowflake.ID, approved bool, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE users SET business_approved = ?, updated_at = ? WHERE id = ? AND role = ?`,
		approved, now, id, domain.RoleBusiness,
	)
	return res.RowsAffected, res.Error
}
