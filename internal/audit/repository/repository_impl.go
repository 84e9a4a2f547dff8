package repository

import (
	"context"
	"strings"

	"github.com/smallbiznis/flyerpoint/internal/audit/domain"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.AuditLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.AuditLog, error) {
	stmt, err := pagination.Apply(
		db.WithContext(ctx).Model(&domain.AuditLog{}).Scopes(filterScope(filter)),
		page,
	)
	if err != nil {
		return nil, err
	}

	var logs []*domain.AuditLog
	if err := stmt.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// filterScope adds one equality clause per non-empty filter column and a
// lower bound on created_at.
func filterScope(filter domain.ListFilter) func(*gorm.DB) *gorm.DB {
	return func(stmt *gorm.DB) *gorm.DB {
		for column, value := range map[string]string{
			"action":      filter.Action,
			"target_type": filter.TargetType,
			"target_id":   filter.TargetID,
			"actor_type":  filter.ActorType,
			"actor_id":    filter.ActorID,
		} {
			if value = strings.TrimSpace(value); value != "" {
				stmt = stmt.Where(column+" = ?", value)
			}
		}
		if !filter.Since.IsZero() {
			stmt = stmt.Where("created_at >= ?", filter.Since)
		}
		return stmt
	}
}
