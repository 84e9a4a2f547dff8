package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/internal/clock"
	"github.com/smallbiznis/flyerpoint/internal/config"
	ledgerdomain "github.com/smallbiznis/flyerpoint/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/flyerpoint/internal/observability/metrics"
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
	Repo       ledgerdomain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	policy     *config.PolicyHolder
	repo       ledgerdomain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		policy:     p.Policy,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Post(ctx context.Context, tx *gorm.DB, p ledgerdomain.Posting) (int64, error) {
	if p.UserID == 0 {
		return 0, ledgerdomain.ErrAccountNotFound
	}
	if p.Amount <= 0 {
		return 0, ledgerdomain.ErrInvalidAmount
	}
	if tx == nil {
		tx = s.db
	}

	now := s.clock.Now()
	switch p.Type {
	case ledgerdomain.EntryTypeEarn:
		affected, err := s.repo.CreditBalance(ctx, tx, p.UserID, p.Amount, now)
		if err != nil {
			return 0, err
		}
		if affected == 0 {
			if _, ok, err := s.repo.Balance(ctx, tx, p.UserID); err != nil {
				return 0, err
			} else if !ok {
				return 0, ledgerdomain.ErrAccountNotFound
			}
			return 0, ledgerdomain.ErrAccountCannotEarn
		}
	case ledgerdomain.EntryTypeUse:
		affected, err := s.repo.DebitBalance(ctx, tx, p.UserID, p.Amount, now)
		if err != nil {
			return 0, err
		}
		if affected == 0 {
			balance, ok, err := s.repo.Balance(ctx, tx, p.UserID)
			if err != nil {
				return 0, err
			}
			if !ok {
				return 0, ledgerdomain.ErrAccountNotFound
			}
			return 0, ledgerdomain.ErrInsufficientBalance.
				WithMessage(fmt.Sprintf("insufficient points (balance: %d)", balance)).
				WithDetails(map[string]any{"balance": balance, "requested": p.Amount})
		}
	default:
		return 0, ledgerdomain.ErrInvalidEntryType
	}

	txn := ledgerdomain.PointTransaction{
		ID:          s.genID.Generate(),
		UserID:      p.UserID,
		Amount:      p.Amount,
		Type:        p.Type,
		SourceType:  p.SourceType,
		SourceID:    p.SourceID,
		Description: strings.TrimSpace(p.Description),
		CreatedAt:   now,
	}
	if err := s.repo.InsertTransaction(ctx, tx, &txn); err != nil {
		return 0, err
	}

	balance, _, err := s.repo.Balance(ctx, tx, p.UserID)
	if err != nil {
		return 0, err
	}

	if p.Type == ledgerdomain.EntryTypeUse {
		s.obsMetrics.RecordPointsUsed(ctx, string(p.SourceType), p.Amount)
	}
	s.log.Debug("point transaction posted",
		zap.String("user_id", p.UserID.String()),
		zap.String("type", string(p.Type)),
		zap.String("source_type", string(p.SourceType)),
		zap.Int64("amount", p.Amount),
		zap.Int64("balance", balance),
	)
	return balance, nil
}

func (s *Service) History(ctx context.Context, userID snowflake.ID) ([]ledgerdomain.PointTransaction, error) {
	limit := s.policy.Get().HistoryLimit
	if limit <= 0 {
		limit = 50
	}
	txns, err := s.repo.ListByUser(ctx, s.db, userID, limit)
	if err != nil {
		return nil, err
	}
	if txns == nil {
		txns = []ledgerdomain.PointTransaction{}
	}
	return txns, nil
}

func (s *Service) Reconcile(ctx context.Context, userID snowflake.ID) (ledgerdomain.Reconciliation, error) {
	balance, ok, err := s.repo.Balance(ctx, s.db, userID)
	if err != nil {
		return ledgerdomain.Reconciliation{}, err
	}
	if !ok {
		return ledgerdomain.Reconciliation{}, ledgerdomain.ErrAccountNotFound
	}
	sums, err := s.repo.SumByUser(ctx, s.db, userID)
	if err != nil {
		return ledgerdomain.Reconciliation{}, err
	}

	result := ledgerdomain.Reconciliation{
		UserID:     userID,
		Balance:    balance,
		Earned:     sums.Earned,
		Used:       sums.Used,
		Consistent: balance == sums.Earned-sums.Used,
	}
	if !result.Consistent {
		s.log.Warn("point balance drift detected",
			zap.String("user_id", userID.String()),
			zap.Int64("balance", balance),
			zap.Int64("earned", sums.Earned),
			zap.Int64("used", sums.Used),
		)
	}
	return result, nil
}

func (s *Service) Totals(ctx context.Context) (ledgerdomain.Totals, error) {
	return s.repo.Totals(ctx, s.db)
}
