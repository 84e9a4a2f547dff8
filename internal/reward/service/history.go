package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/internal/reward/domain"
)

const defaultHistoryLimit = 50

func (s *Service) ShareHistory(ctx context.Context, userID snowflake.ID) ([]domain.ShareHistoryItem, error) {
	items, err := s.repo.ListShares(ctx, s.db, userID, s.historyLimit())
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.ShareHistoryItem{}
	}
	return items, nil
}

func (s *Service) QuizHistory(ctx context.Context, userID snowflake.ID) ([]domain.QuizHistoryItem, error) {
	items, err := s.repo.ListQuizAttempts(ctx, s.db, userID, s.historyLimit())
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.QuizHistoryItem{}
	}
	return items, nil
}

func (s *Service) VisitHistory(ctx context.Context, userID snowflake.ID) ([]domain.VisitHistoryItem, error) {
	items, err := s.repo.ListVisits(ctx, s.db, userID, s.historyLimit())
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.VisitHistoryItem{}
	}
	return items, nil
}

func (s *Service) historyLimit() int {
	if limit := s.policy.Get().HistoryLimit; limit > 0 {
		return limit
	}
	return defaultHistoryLimit
}
