package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/flyerpoint/internal/audit/domain"
	"github.com/smallbiznis/flyerpoint/internal/clock"
	ledgerdomain "github.com/smallbiznis/flyerpoint/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/flyerpoint/internal/observability/metrics"
	"github.com/smallbiznis/flyerpoint/internal/settlement/domain"
	userdomain "github.com/smallbiznis/flyerpoint/internal/user/domain"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const withdrawalDescription = "point withdrawal"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	UserRepo   userdomain.Repository
	Ledger     ledgerdomain.Service
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	userRepo   userdomain.Repository
	ledger     ledgerdomain.Service
	auditSvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("settlement.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		userRepo:   p.UserRepo,
		ledger:     p.Ledger,
		auditSvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Request(ctx context.Context, req domain.CreateWithdrawalRequest) (domain.Withdrawal, error) {
	if req.Amount <= 0 {
		return domain.Withdrawal{}, domain.ErrInvalidAmount
	}
	bankName := strings.TrimSpace(req.BankName)
	accountNumber := strings.TrimSpace(req.AccountNumber)
	accountHolder := strings.TrimSpace(req.AccountHolder)
	if bankName == "" || accountNumber == "" || accountHolder == "" {
		return domain.Withdrawal{}, domain.ErrInvalidBankAccount
	}

	user, err := s.userRepo.FindByID(ctx, s.db, req.UserID)
	if err != nil {
		return domain.Withdrawal{}, err
	}
	if user == nil {
		return domain.Withdrawal{}, userdomain.ErrUserNotFound
	}
	// Advisory only; approval re-checks against the balance at that time.
	if user.PointBalance < req.Amount {
		return domain.Withdrawal{}, insufficient(user.PointBalance, req.Amount)
	}

	withdrawal := domain.Withdrawal{
		ID:            s.genID.Generate(),
		UserID:        req.UserID,
		Amount:        req.Amount,
		Status:        domain.StatusPending,
		BankName:      bankName,
		AccountNumber: accountNumber,
		AccountHolder: accountHolder,
		CreatedAt:     s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &withdrawal); err != nil {
		return domain.Withdrawal{}, err
	}

	s.log.Info("withdrawal requested",
		zap.String("withdrawal_id", withdrawal.ID.String()),
		zap.String("user_id", req.UserID.String()),
		zap.Int64("amount", req.Amount),
	)
	return withdrawal, nil
}

func (s *Service) Process(ctx context.Context, req domain.ProcessRequest) (domain.ProcessResult, error) {
	decision, ok := domain.ParseDecision(strings.ToLower(strings.TrimSpace(req.Decision)))
	if !ok {
		return domain.ProcessResult{}, domain.ErrInvalidDecision
	}

	var (
		withdrawal domain.Withdrawal
		result     domain.ProcessResult
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := s.repo.FindForUpdate(ctx, tx, req.WithdrawalID)
		if err != nil {
			return err
		}
		if found == nil {
			return domain.ErrWithdrawalNotFound
		}
		if !found.IsPending() {
			return domain.ErrWithdrawalNotPending
		}
		withdrawal = *found

		status := domain.StatusRejected
		if decision == domain.DecisionApprove {
			status = domain.StatusApproved
			sourceID := withdrawal.ID
			remain, err := s.ledger.Post(ctx, tx, ledgerdomain.Posting{
				UserID:      withdrawal.UserID,
				Type:        ledgerdomain.EntryTypeUse,
				Amount:      withdrawal.Amount,
				SourceType:  ledgerdomain.SourceTypeWithdrawal,
				SourceID:    &sourceID,
				Description: withdrawalDescription,
			})
			if err != nil {
				return err
			}
			result.RemainPoints = &remain
		}

		affected, err := s.repo.Settle(ctx, tx, withdrawal.ID, status, s.clock.Now())
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrWithdrawalNotPending
		}
		result.ID = withdrawal.ID
		result.Status = status
		return nil
	})
	if err != nil {
		return domain.ProcessResult{}, err
	}

	s.obsMetrics.RecordSettlement(ctx, string(decision))
	s.audit(ctx, withdrawal, result.Status)
	s.log.Info("withdrawal processed",
		zap.String("withdrawal_id", withdrawal.ID.String()),
		zap.String("user_id", withdrawal.UserID.String()),
		zap.String("status", string(result.Status)),
		zap.Int64("amount", withdrawal.Amount),
	)
	return result, nil
}

func (s *Service) List(ctx context.Context, req domain.ListWithdrawalRequest) (domain.ListWithdrawalResponse, error) {
	filter := domain.ListFilter{UserID: req.UserID}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := domain.ParseStatus(raw)
		if !ok {
			return domain.ListWithdrawalResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}
	if strings.TrimSpace(req.PageToken) != "" {
		if _, err := pagination.DecodeCursor(req.PageToken); err != nil {
			return domain.ListWithdrawalResponse{}, domain.ErrInvalidPageToken
		}
	}

	items, err := s.repo.List(ctx, s.db, filter, req.Pagination)
	if err != nil {
		return domain.ListWithdrawalResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, req.Size(), func(w *domain.Withdrawal) string {
		return w.ID.String()
	})

	withdrawals := make([]domain.Withdrawal, 0, len(items))
	for _, item := range items {
		withdrawals = append(withdrawals, *item)
	}
	return domain.ListWithdrawalResponse{PageInfo: pageInfo, Withdrawals: withdrawals}, nil
}

func (s *Service) audit(ctx context.Context, withdrawal domain.Withdrawal, status domain.Status) {
	if s.auditSvc == nil {
		s.log.Warn("audit service unavailable for withdrawal", zap.String("withdrawal_id", withdrawal.ID.String()))
		return
	}
	action := auditdomain.ActionWithdrawalReject
	if status == domain.StatusApproved {
		action = auditdomain.ActionWithdrawalApprove
	}
	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     action,
		TargetType: auditdomain.TargetWithdrawal,
		TargetID:   withdrawal.ID.String(),
		Metadata: map[string]any{
			"user_id":        withdrawal.UserID.String(),
			"amount":         withdrawal.Amount,
			"bank_name":      withdrawal.BankName,
			"account_number": withdrawal.AccountNumber,
		},
	}); err != nil {
		s.log.Warn("failed to write withdrawal audit log", zap.Error(err))
	}
}

func insufficient(balance, requested int64) error {
	return ledgerdomain.ErrInsufficientBalance.
		WithMessage(fmt.Sprintf("insufficient points (balance: %d)", balance)).
		WithDetails(map[string]any{"balance": balance, "requested": requested})
}
