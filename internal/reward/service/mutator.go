package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/flyerpoint/internal/ledger/domain"
	"github.com/smallbiznis/flyerpoint/internal/reward/domain"
	"github.com/smallbiznis/flyerpoint/pkg/db"
	"github.com/smallbiznis/flyerpoint/pkg/errs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// payout is one reward unit of work. insertEvidence writes the row whose
// unique index blocks a second payout; duplicate must be the conflict
// reported when that index trips.
type payout struct {
	userID         snowflake.ID
	flyerID        snowflake.ID
	decision       domain.Decision
	sourceType     ledgerdomain.SourceType
	sourceID       snowflake.ID
	duplicate      error
	insertEvidence func(tx *gorm.DB) error
	afterPayout    func(tx *gorm.DB) error
}

// maxCommitAttempts bounds retries of a payout aborted by a serialization
// failure. Each attempt is a fresh transaction.
const maxCommitAttempts = 3

// commit runs a payout in a single transaction and returns the earner's
// balance after it.
func (s *Service) commit(ctx context.Context, p payout) (int64, error) {
	var (
		balance int64
		err     error
	)
	for attempt := 1; attempt <= maxCommitAttempts; attempt++ {
		balance, err = s.apply(ctx, p)
		if err == nil || !db.IsSerializationErr(err) || ctx.Err() != nil {
			break
		}
		s.log.Debug("retrying reward transaction",
			zap.String("event_type", string(p.decision.EventType)),
			zap.Int("attempt", attempt),
		)
	}
	if err != nil {
		return 0, s.settle(ctx, p, err)
	}

	s.obsMetrics.RecordRewardIssued(ctx, string(p.decision.EventType), p.decision.FundingSource(), p.decision.Amount)
	s.log.Info("reward issued",
		zap.String("event_type", string(p.decision.EventType)),
		zap.String("user_id", p.userID.String()),
		zap.String("flyer_id", p.flyerID.String()),
		zap.String("funding_source", p.decision.FundingSource()),
		zap.Int64("points", p.decision.Amount),
		zap.Int64("balance", balance),
	)
	return balance, nil
}

func (s *Service) apply(ctx context.Context, p payout) (int64, error) {
	var balance int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := p.insertEvidence(tx); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return p.duplicate
			}
			return err
		}

		if p.decision.Amount > 0 {
			sourceID := p.sourceID
			next, err := s.ledger.Post(ctx, tx, ledgerdomain.Posting{
				UserID:      p.userID,
				Type:        ledgerdomain.EntryTypeEarn,
				Amount:      p.decision.Amount,
				SourceType:  p.sourceType,
				SourceID:    &sourceID,
				Description: p.decision.Description,
			})
			if err != nil {
				return err
			}
			balance = next

			if p.decision.IsBusinessFunded() {
				affected, err := s.repo.DebitBudget(ctx, tx, p.decision.FundedBy, p.decision.Amount, s.clock.Now())
				if err != nil {
					return err
				}
				if affected == 0 {
					return domain.ErrBudgetExhausted
				}
			}
		} else {
			user, err := s.userRepo.FindByID(ctx, tx, p.userID)
			if err != nil {
				return err
			}
			if user == nil {
				return ledgerdomain.ErrAccountNotFound
			}
			balance = user.PointBalance
		}

		if p.afterPayout != nil {
			return p.afterPayout(tx)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// settle classifies a rolled back payout. Rule outcomes pass through; storage
// faults are logged and hidden behind ErrProcessingFailed.
func (s *Service) settle(ctx context.Context, p payout, err error) error {
	if errs.IsDomain(err) {
		s.reject(ctx, p.decision.EventType, err)
		return err
	}
	fields := []zap.Field{
		zap.String("event_type", string(p.decision.EventType)),
		zap.String("user_id", p.userID.String()),
		zap.String("flyer_id", p.flyerID.String()),
		zap.Error(err),
	}
	if db.IsSerializationErr(err) || errors.Is(err, context.DeadlineExceeded) {
		s.log.Warn("reward transaction aborted", fields...)
	} else {
		s.log.Error("reward transaction failed", fields...)
	}
	s.obsMetrics.RecordRewardRejected(ctx, string(p.decision.EventType), domain.ErrProcessingFailed.Code)
	return domain.ErrProcessingFailed
}

func (s *Service) reject(ctx context.Context, eventType domain.EventType, err error) {
	reason := "unknown"
	if classified, ok := errs.As(err); ok {
		reason = classified.Code
	}
	s.obsMetrics.RecordRewardRejected(ctx, string(eventType), reason)
}
