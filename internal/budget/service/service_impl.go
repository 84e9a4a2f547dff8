package service

import (
	"context"
	"math"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/internal/budget/domain"
	"github.com/smallbiznis/flyerpoint/internal/clock"
	"github.com/smallbiznis/flyerpoint/internal/config"
	obsmetrics "github.com/smallbiznis/flyerpoint/internal/observability/metrics"
	userdomain "github.com/smallbiznis/flyerpoint/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Policy     *config.PolicyHolder
	Repo       domain.Repository
	UserRepo   userdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	policy     *config.PolicyHolder
	repo       domain.Repository
	userRepo   userdomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("budget.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		policy:     p.Policy,
		repo:       p.Repo,
		userRepo:   p.UserRepo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Charge(ctx context.Context, req domain.ChargeRequest) (domain.ChargeResult, error) {
	if err := s.requireBusiness(ctx, req.UserID); err != nil {
		return domain.ChargeResult{}, err
	}
	policy := s.policy.Get()
	if req.Amount < policy.ChargeMin || req.Amount > policy.ChargeMax {
		return domain.ChargeResult{}, domain.ErrAmountOutOfRange.WithDetails(map[string]any{
			"min": policy.ChargeMin,
			"max": policy.ChargeMax,
		})
	}

	now := s.clock.Now()
	var newBudget int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		affected, err := s.repo.CreditBudget(ctx, tx, req.UserID, req.Amount, now)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrNotBusiness
		}
		if err := s.repo.InsertCharge(ctx, tx, &domain.BudgetCharge{
			ID:        s.genID.Generate(),
			UserID:    req.UserID,
			Amount:    req.Amount,
			Method:    domain.MethodManual,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		owner, err := s.userRepo.FindByID(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if owner == nil {
			return userdomain.ErrUserNotFound
		}
		newBudget = owner.PointBudget
		return nil
	})
	if err != nil {
		return domain.ChargeResult{}, err
	}

	s.obsMetrics.RecordBudgetCharge(ctx, domain.MethodManual, req.Amount)
	s.log.Info("budget charged",
		zap.String("user_id", req.UserID.String()),
		zap.Int64("amount", req.Amount),
		zap.Int64("budget", newBudget),
	)
	return domain.ChargeResult{NewBudget: newBudget, ChargedAmount: req.Amount}, nil
}

func (s *Service) History(ctx context.Context, userID snowflake.ID) ([]domain.BudgetCharge, error) {
	if err := s.requireBusiness(ctx, userID); err != nil {
		return nil, err
	}
	limit := s.policy.Get().HistoryLimit
	charges, err := s.repo.ListCharges(ctx, s.db, userID, limit)
	if err != nil {
		return nil, err
	}
	if charges == nil {
		charges = []domain.BudgetCharge{}
	}
	return charges, nil
}

func (s *Service) Stats(ctx context.Context, userID snowflake.ID) (domain.Stats, error) {
	if err := s.requireBusiness(ctx, userID); err != nil {
		return domain.Stats{}, err
	}
	stats, err := s.repo.Stats(ctx, s.db, userID)
	if err != nil {
		return domain.Stats{}, err
	}
	if stats.Views > 0 {
		rate := float64(stats.QuizAttempts) / float64(stats.Views) * 100
		stats.QuizParticipationRate = math.Round(rate*10) / 10
	}
	return stats, nil
}

func (s *Service) requireBusiness(ctx context.Context, userID snowflake.ID) error {
	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return userdomain.ErrUserNotFound
	}
	if !user.IsBusiness() {
		return domain.ErrNotBusiness
	}
	return nil
}
