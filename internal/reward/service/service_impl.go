package service

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/internal/clock"
	"github.com/smallbiznis/flyerpoint/internal/config"
	flyerdomain "github.com/smallbiznis/flyerpoint/internal/flyer/domain"
	ledgerdomain "github.com/smallbiznis/flyerpoint/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/flyerpoint/internal/observability/metrics"
	"github.com/smallbiznis/flyerpoint/internal/reward/domain"
	"github.com/smallbiznis/flyerpoint/internal/reward/rules"
	userdomain "github.com/smallbiznis/flyerpoint/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultUseDescription = "point use"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Policy     *config.PolicyHolder
	Repo       domain.Repository
	FlyerRepo  flyerdomain.Repository
	UserRepo   userdomain.Repository
	Ledger     ledgerdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	policy     *config.PolicyHolder
	repo       domain.Repository
	flyerRepo  flyerdomain.Repository
	userRepo   userdomain.Repository
	ledger     ledgerdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("reward.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		policy:     p.Policy,
		repo:       p.Repo,
		flyerRepo:  p.FlyerRepo,
		userRepo:   p.UserRepo,
		ledger:     p.Ledger,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) RecordShare(ctx context.Context, req domain.RecordShareRequest) (domain.ShareResult, error) {
	if err := s.loadEarner(ctx, domain.EventTypeShare, req.UserID); err != nil {
		return domain.ShareResult{}, err
	}
	flyer, err := s.loadFlyer(ctx, domain.EventTypeShare, req.FlyerID)
	if err != nil {
		return domain.ShareResult{}, err
	}

	policy := s.policy.Get()
	now := s.clock.Now()
	decision, err := rules.EvaluateShare(flyer, now, policy.Location())
	if err != nil {
		s.reject(ctx, domain.EventTypeShare, err)
		return domain.ShareResult{}, err
	}
	if err := s.checkBudget(ctx, decision); err != nil {
		return domain.ShareResult{}, err
	}

	record := domain.ShareRecord{
		ID:        s.genID.Generate(),
		UserID:    req.UserID,
		FlyerID:   flyer.ID,
		Points:    decision.Amount,
		CreatedAt: now,
	}
	balance, err := s.commit(ctx, payout{
		userID:     req.UserID,
		flyerID:    flyer.ID,
		decision:   decision,
		sourceType: ledgerdomain.SourceTypeShare,
		sourceID:   record.ID,
		duplicate:  domain.ErrAlreadyRewarded,
		insertEvidence: func(tx *gorm.DB) error {
			return s.repo.InsertShare(ctx, tx, &record)
		},
		afterPayout: func(tx *gorm.DB) error {
			return s.repo.IncrementShareCount(ctx, tx, flyer.ID)
		},
	})
	if err != nil {
		return domain.ShareResult{}, err
	}
	return domain.ShareResult{EarnedPoints: decision.Amount, TotalPoints: balance}, nil
}

func (s *Service) RecordQuizAttempt(ctx context.Context, req domain.RecordQuizRequest) (domain.QuizResult, error) {
	if err := s.loadEarner(ctx, domain.EventTypeQuiz, req.UserID); err != nil {
		return domain.QuizResult{}, err
	}
	flyer, err := s.loadFlyer(ctx, domain.EventTypeQuiz, req.FlyerID)
	if err != nil {
		return domain.QuizResult{}, err
	}
	quiz, err := s.flyerRepo.FindQuiz(ctx, s.db, flyer.ID, req.QuizID)
	if err != nil {
		return domain.QuizResult{}, err
	}
	if quiz == nil {
		s.reject(ctx, domain.EventTypeQuiz, flyerdomain.ErrQuizNotFound)
		return domain.QuizResult{}, flyerdomain.ErrQuizNotFound
	}

	decision, correct := rules.EvaluateQuiz(flyer, *quiz, req.Answer)
	if err := s.checkBudget(ctx, decision); err != nil {
		return domain.QuizResult{}, err
	}

	attempt := domain.QuizAttempt{
		ID:              s.genID.Generate(),
		UserID:          req.UserID,
		FlyerID:         flyer.ID,
		QuizID:          quiz.ID,
		SubmittedAnswer: strings.TrimSpace(req.Answer),
		IsCorrect:       correct,
		PointsEarned:    decision.Amount,
		CreatedAt:       s.clock.Now(),
	}
	balance, err := s.commit(ctx, payout{
		userID:     req.UserID,
		flyerID:    flyer.ID,
		decision:   decision,
		sourceType: ledgerdomain.SourceTypeQuiz,
		sourceID:   attempt.ID,
		duplicate:  domain.ErrAlreadyRewarded,
		insertEvidence: func(tx *gorm.DB) error {
			return s.repo.InsertQuizAttempt(ctx, tx, &attempt)
		},
	})
	if err != nil {
		return domain.QuizResult{}, err
	}
	return domain.QuizResult{
		IsCorrect:     correct,
		EarnedPoints:  decision.Amount,
		TotalPoints:   balance,
		CorrectAnswer: quiz.Answer,
	}, nil
}

func (s *Service) RecordVisit(ctx context.Context, req domain.RecordVisitRequest) (domain.VisitResult, error) {
	if err := s.loadEarner(ctx, domain.EventTypeVisit, req.UserID); err != nil {
		return domain.VisitResult{}, err
	}
	code := strings.TrimSpace(req.QRCode)
	if code == "" {
		s.reject(ctx, domain.EventTypeVisit, flyerdomain.ErrInvalidQRCode)
		return domain.VisitResult{}, flyerdomain.ErrInvalidQRCode
	}
	flyer, err := s.flyerRepo.FindByQRCode(ctx, s.db, code)
	if err != nil {
		return domain.VisitResult{}, err
	}
	if flyer == nil {
		s.reject(ctx, domain.EventTypeVisit, flyerdomain.ErrInvalidQRCode)
		return domain.VisitResult{}, flyerdomain.ErrInvalidQRCode
	}
	if err := rules.CheckFlyer(*flyer); err != nil {
		s.reject(ctx, domain.EventTypeVisit, err)
		return domain.VisitResult{}, err
	}

	policy := s.policy.Get()
	decision := rules.EvaluateVisit(*flyer, policy.DefaultQRPoint)
	if err := s.checkBudget(ctx, decision); err != nil {
		return domain.VisitResult{}, err
	}

	now := s.clock.Now()
	visit := domain.VisitVerification{
		ID:           s.genID.Generate(),
		UserID:       req.UserID,
		FlyerID:      flyer.ID,
		VisitDate:    rules.VisitDay(now, policy.Location()),
		PointsEarned: decision.Amount,
		CreatedAt:    now,
	}
	balance, err := s.commit(ctx, payout{
		userID:     req.UserID,
		flyerID:    flyer.ID,
		decision:   decision,
		sourceType: ledgerdomain.SourceTypeVisit,
		sourceID:   visit.ID,
		duplicate:  domain.ErrAlreadyRewardedToday,
		insertEvidence: func(tx *gorm.DB) error {
			return s.repo.InsertVisit(ctx, tx, &visit)
		},
	})
	if err != nil {
		return domain.VisitResult{}, err
	}
	return domain.VisitResult{
		EarnedPoints: decision.Amount,
		TotalPoints:  balance,
		StoreName:    flyer.StoreName,
		FlyerTitle:   flyer.Title,
	}, nil
}

func (s *Service) UsePoints(ctx context.Context, req domain.UsePointsRequest) (domain.UseResult, error) {
	if req.Amount <= 0 {
		return domain.UseResult{}, domain.ErrInvalidAmount
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = defaultUseDescription
	}

	var remain int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		balance, err := s.ledger.Post(ctx, tx, ledgerdomain.Posting{
			UserID:      req.UserID,
			Type:        ledgerdomain.EntryTypeUse,
			Amount:      req.Amount,
			SourceType:  ledgerdomain.SourceTypePointUse,
			Description: description,
		})
		remain = balance
		return err
	})
	if err != nil {
		return domain.UseResult{}, err
	}

	s.log.Info("points used",
		zap.String("user_id", req.UserID.String()),
		zap.Int64("points", req.Amount),
		zap.Int64("balance", remain),
	)
	return domain.UseResult{UsedPoints: req.Amount, RemainPoints: remain}, nil
}

// NextQuiz serves one random quiz of an approved flyer, hiding its answer.
func (s *Service) NextQuiz(ctx context.Context, userID, flyerID snowflake.ID) (domain.NextQuiz, error) {
	flyer, err := s.flyerRepo.FindByID(ctx, s.db, flyerID)
	if err != nil {
		return domain.NextQuiz{}, err
	}
	if flyer == nil || flyer.Status != flyerdomain.StatusApproved {
		return domain.NextQuiz{}, flyerdomain.ErrFlyerNotFound
	}

	attempted, err := s.repo.HasAttemptedQuiz(ctx, s.db, userID, flyerID)
	if err != nil {
		return domain.NextQuiz{}, err
	}
	if attempted {
		return domain.NextQuiz{Attempted: true}, nil
	}

	quizzes, err := s.flyerRepo.ListQuizzes(ctx, s.db, flyerID)
	if err != nil {
		return domain.NextQuiz{}, err
	}
	if len(quizzes) == 0 {
		return domain.NextQuiz{}, flyerdomain.ErrQuizNotFound
	}
	quiz := quizzes[rand.IntN(len(quizzes))]
	quiz.Answer = ""
	return domain.NextQuiz{Quiz: &quiz}, nil
}

func (s *Service) loadEarner(ctx context.Context, eventType domain.EventType, userID snowflake.ID) error {
	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return err
	}
	if user == nil {
		s.reject(ctx, eventType, userdomain.ErrUserNotFound)
		return userdomain.ErrUserNotFound
	}
	if err := rules.CheckEarner(*user); err != nil {
		s.reject(ctx, eventType, err)
		return err
	}
	return nil
}

func (s *Service) loadFlyer(ctx context.Context, eventType domain.EventType, flyerID snowflake.ID) (flyerdomain.Flyer, error) {
	flyer, err := s.flyerRepo.FindByID(ctx, s.db, flyerID)
	if err != nil {
		return flyerdomain.Flyer{}, err
	}
	if flyer == nil {
		s.reject(ctx, eventType, flyerdomain.ErrFlyerNotFound)
		return flyerdomain.Flyer{}, flyerdomain.ErrFlyerNotFound
	}
	if err := rules.CheckFlyer(*flyer); err != nil {
		s.reject(ctx, eventType, err)
		return flyerdomain.Flyer{}, err
	}
	return *flyer, nil
}

// checkBudget is the fast-fail read before any write. The conditional debit
// in commit is what actually guards the budget.
func (s *Service) checkBudget(ctx context.Context, decision domain.Decision) error {
	if !decision.IsBusinessFunded() || decision.Amount <= 0 {
		return nil
	}
	var budget int64
	owner, err := s.userRepo.FindByID(ctx, s.db, decision.FundedBy)
	if err != nil {
		return err
	}
	if owner != nil {
		budget = owner.PointBudget
	}
	if err := rules.CheckBudget(decision, budget); err != nil {
		s.reject(ctx, decision.EventType, err)
		return err
	}
	return nil
}
