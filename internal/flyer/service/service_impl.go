package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/flyerpoint/internal/clock"
	"github.com/smallbiznis/flyerpoint/internal/config"
	"github.com/smallbiznis/flyerpoint/internal/flyer/domain"
	userdomain "github.com/smallbiznis/flyerpoint/internal/user/domain"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultSharePoint = 10

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Policy  *config.PolicyHolder
	Repo    domain.Repository
	UserSvc userdomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	policy  *config.PolicyHolder
	repo    domain.Repository
	userSvc userdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("flyer.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		policy:  p.Policy,
		repo:    p.Repo,
		userSvc: p.UserSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateFlyerRequest) (domain.Flyer, error) {
	details, err := checkDetails(flyerDetails{
		storeName:  req.StoreName,
		category:   req.Category,
		title:      req.Title,
		subtitle:   req.Subtitle,
		tags:       req.Tags,
		validFrom:  req.ValidFrom,
		validUntil: req.ValidUntil,
		sharePoint: req.SharePoint,
		qrPoint:    req.QRPoint,
	})
	if err != nil {
		return domain.Flyer{}, err
	}
	if len(req.Items) == 0 {
		return domain.Flyer{}, domain.ErrInvalidItems
	}

	if req.OwnerID != nil {
		owner, err := s.userSvc.Get(ctx, *req.OwnerID)
		if err != nil {
			return domain.Flyer{}, err
		}
		if !owner.IsBusiness() {
			return domain.Flyer{}, domain.ErrOwnerNotBusiness
		}
	}

	now := s.clock.Now()
	flyer := domain.Flyer{
		ID:        s.genID.Generate(),
		OwnerID:   req.OwnerID,
		Status:    domain.StatusApproved,
		CreatedAt: now,
	}
	details.apply(&flyer, now)
	flyer.Items, err = s.buildItems(flyer.ID, req.Items)
	if err != nil {
		return domain.Flyer{}, err
	}

	if err := s.repo.Insert(ctx, s.db, &flyer); err != nil {
		return domain.Flyer{}, err
	}

	s.log.Info("flyer created",
		zap.String("flyer_id", flyer.ID.String()),
		zap.Bool("business_funded", flyer.IsBusinessFunded()),
	)
	return flyer, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Flyer, error) {
	flyer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Flyer{}, err
	}
	if flyer == nil {
		return domain.Flyer{}, domain.ErrFlyerNotFound
	}
	items, err := s.repo.ListItems(ctx, s.db, id)
	if err != nil {
		return domain.Flyer{}, err
	}
	flyer.Items = items
	return *flyer, nil
}

// View returns a publicly visible flyer and counts the view.
func (s *Service) View(ctx context.Context, id snowflake.ID) (domain.Flyer, error) {
	flyer, err := s.Get(ctx, id)
	if err != nil {
		return domain.Flyer{}, err
	}
	if flyer.Status != domain.StatusApproved {
		return domain.Flyer{}, domain.ErrFlyerNotFound
	}
	if err := s.repo.IncrementViewCount(ctx, s.db, id); err != nil {
		s.log.Warn("increment view count failed", zap.String("flyer_id", id.String()), zap.Error(err))
	} else {
		flyer.ViewCount++
	}
	return flyer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListFlyerRequest) (domain.ListFlyerResponse, error) {
	filter := domain.ListFlyerFilter{
		Category: strings.TrimSpace(req.Category),
		Search:   strings.TrimSpace(req.Search),
		OwnerID:  req.OwnerID,
	}
	switch {
	case strings.TrimSpace(req.Status) != "":
		status, ok := domain.ParseStatus(strings.TrimSpace(req.Status))
		if !ok {
			return domain.ListFlyerResponse{}, domain.ErrInvalidStatus
		}
		if status != domain.StatusApproved && !req.IncludeHidden {
			return domain.ListFlyerResponse{}, domain.ErrInvalidStatus
		}
		filter.Statuses = []domain.Status{status}
	case !req.IncludeHidden:
		filter.Statuses = []domain.Status{domain.StatusApproved}
	}

	items, err := s.repo.List(ctx, s.db, filter, req.Pagination)
	if err != nil {
		return domain.ListFlyerResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, req.Pagination.Size(), func(f *domain.Flyer) string {
		return f.ID.String()
	})

	flyers := make([]domain.Flyer, 0, len(items))
	for _, item := range items {
		flyers = append(flyers, *item)
	}
	return domain.ListFlyerResponse{PageInfo: pageInfo, Flyers: flyers}, nil
}

func (s *Service) SetStatus(ctx context.Context, id snowflake.ID, raw string) (domain.Flyer, error) {
	status, ok := domain.ParseStatus(strings.TrimSpace(raw))
	if !ok {
		return domain.Flyer{}, domain.ErrInvalidStatus
	}
	if _, err := s.Get(ctx, id); err != nil {
		return domain.Flyer{}, err
	}
	if _, err := s.repo.UpdateStatus(ctx, s.db, id, status); err != nil {
		return domain.Flyer{}, err
	}
	s.log.Info("flyer status changed",
		zap.String("flyer_id", id.String()),
		zap.String("status", string(status)),
	)
	return s.Get(ctx, id)
}

// GenerateQRCode issues a fresh visit code for the flyer, replacing any
// previous one. Only the owning business may do this.
func (s *Service) GenerateQRCode(ctx context.Context, actorID, flyerID snowflake.ID) (domain.QRCodeResult, error) {
	flyer, err := s.Get(ctx, flyerID)
	if err != nil {
		return domain.QRCodeResult{}, err
	}
	if !flyer.OwnedBy(actorID) {
		return domain.QRCodeResult{}, domain.ErrNotFlyerOwner
	}

	code := uuid.NewString()
	if _, err := s.repo.UpdateQRCode(ctx, s.db, flyerID, code); err != nil {
		return domain.QRCodeResult{}, err
	}

	return domain.QRCodeResult{
		FlyerID:   flyerID,
		QRCode:    code,
		QRPoint:   s.effectiveQRPoint(flyer),
		StoreName: flyer.StoreName,
	}, nil
}

func (s *Service) ReplaceQuizzes(ctx context.Context, req domain.ReplaceQuizzesRequest) ([]domain.Quiz, error) {
	policy := s.policy.Get()
	if len(req.Quizzes) < policy.QuizMinCount || len(req.Quizzes) > policy.QuizMaxCount {
		return nil, domain.ErrInvalidQuizCount.WithMessage(
			fmt.Sprintf("a flyer needs between %d and %d quizzes", policy.QuizMinCount, policy.QuizMaxCount))
	}

	flyer, err := s.Get(ctx, req.FlyerID)
	if err != nil {
		return nil, err
	}
	if !flyer.OwnedBy(req.ActorID) {
		return nil, domain.ErrNotFlyerOwner
	}

	now := s.clock.Now()
	quizzes := make([]domain.Quiz, 0, len(req.Quizzes))
	for idx, in := range req.Quizzes {
		question := strings.TrimSpace(in.Question)
		answer := strings.TrimSpace(in.Answer)
		if question == "" || answer == "" {
			return nil, domain.ErrInvalidQuiz
		}
		point := in.Point
		if point == 0 {
			point = policy.QuizPointMin
		}
		if point < policy.QuizPointMin || point > policy.QuizPointMax {
			return nil, domain.ErrInvalidQuizPoint.WithMessage(
				fmt.Sprintf("quiz points must be between %d and %d", policy.QuizPointMin, policy.QuizPointMax))
		}
		quizzes = append(quizzes, domain.Quiz{
			ID:        s.genID.Generate(),
			FlyerID:   req.FlyerID,
			Question:  question,
			Answer:    answer,
			Point:     point,
			SortOrder: idx,
			CreatedAt: now,
		})
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.ReplaceQuizzes(ctx, tx, req.FlyerID, quizzes)
	})
	if err != nil {
		return nil, err
	}
	return quizzes, nil
}

func (s *Service) ListQuizzes(ctx context.Context, flyerID snowflake.ID) ([]domain.Quiz, error) {
	if _, err := s.Get(ctx, flyerID); err != nil {
		return nil, err
	}
	return s.repo.ListQuizzes(ctx, s.db, flyerID)
}

// OwnerQuizzes lists a flyer's quizzes with their answers for the owner.
func (s *Service) OwnerQuizzes(ctx context.Context, actorID, flyerID snowflake.ID) ([]domain.OwnerQuiz, error) {
	if _, err := s.ownedFlyer(ctx, actorID, flyerID); err != nil {
		return nil, err
	}
	quizzes, err := s.repo.ListQuizzes(ctx, s.db, flyerID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.OwnerQuiz, 0, len(quizzes))
	for _, quiz := range quizzes {
		out = append(out, domain.OwnerQuiz{
			ID:       quiz.ID,
			FlyerID:  quiz.FlyerID,
			Question: quiz.Question,
			Answer:   quiz.Answer,
			Point:    quiz.Point,
		})
	}
	return out, nil
}

// GetQRCode returns the visit code currently issued for the flyer.
func (s *Service) GetQRCode(ctx context.Context, actorID, flyerID snowflake.ID) (domain.QRCodeResult, error) {
	flyer, err := s.ownedFlyer(ctx, actorID, flyerID)
	if err != nil {
		return domain.QRCodeResult{}, err
	}
	if flyer.QRCode == nil || *flyer.QRCode == "" {
		return domain.QRCodeResult{}, domain.ErrQRCodeMissing
	}
	return domain.QRCodeResult{
		FlyerID:   flyer.ID,
		QRCode:    *flyer.QRCode,
		QRPoint:   s.effectiveQRPoint(flyer),
		StoreName: flyer.StoreName,
	}, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateFlyerRequest) (domain.Flyer, error) {
	details, err := checkDetails(flyerDetails{
		storeName:  req.StoreName,
		category:   req.Category,
		title:      req.Title,
		subtitle:   req.Subtitle,
		tags:       req.Tags,
		validFrom:  req.ValidFrom,
		validUntil: req.ValidUntil,
		sharePoint: req.SharePoint,
		qrPoint:    req.QRPoint,
	})
	if err != nil {
		return domain.Flyer{}, err
	}

	flyer, err := s.ownedFlyer(ctx, req.ActorID, req.FlyerID)
	if err != nil {
		return domain.Flyer{}, err
	}
	details.apply(&flyer, s.clock.Now())

	var items []domain.FlyerItem
	if len(req.Items) > 0 {
		if items, err = s.buildItems(flyer.ID, req.Items); err != nil {
			return domain.Flyer{}, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateDetails(ctx, tx, &flyer); err != nil {
			return err
		}
		if items == nil {
			return nil
		}
		return s.repo.ReplaceItems(ctx, tx, flyer.ID, items)
	})
	if err != nil {
		return domain.Flyer{}, err
	}

	s.log.Info("flyer updated",
		zap.String("flyer_id", flyer.ID.String()),
		zap.Bool("items_replaced", items != nil),
	)
	return s.Get(ctx, flyer.ID)
}

// Delete removes a flyer that has not paid out any reward yet. Evidence rows
// keep referencing a flyer once it has.
func (s *Service) Delete(ctx context.Context, actorID, flyerID snowflake.ID) error {
	if _, err := s.ownedFlyer(ctx, actorID, flyerID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rewarded, err := s.repo.HasRewards(ctx, tx, flyerID)
		if err != nil {
			return err
		}
		if rewarded {
			return domain.ErrFlyerHasRewards
		}
		affected, err := s.repo.Delete(ctx, tx, flyerID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return domain.ErrFlyerNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("flyer deleted", zap.String("flyer_id", flyerID.String()))
	return nil
}

func (s *Service) ownedFlyer(ctx context.Context, actorID, flyerID snowflake.ID) (domain.Flyer, error) {
	flyer, err := s.repo.FindByID(ctx, s.db, flyerID)
	if err != nil {
		return domain.Flyer{}, err
	}
	if flyer == nil {
		return domain.Flyer{}, domain.ErrFlyerNotFound
	}
	if !flyer.OwnedBy(actorID) {
		return domain.Flyer{}, domain.ErrNotFlyerOwner
	}
	return *flyer, nil
}

func (s *Service) effectiveQRPoint(flyer domain.Flyer) int64 {
	if flyer.QRPoint > 0 {
		return flyer.QRPoint
	}
	return s.policy.Get().DefaultQRPoint
}

func (s *Service) buildItems(flyerID snowflake.ID, reqs []domain.CreateItemRequest) ([]domain.FlyerItem, error) {
	items := make([]domain.FlyerItem, 0, len(reqs))
	for idx, item := range reqs {
		name := strings.TrimSpace(item.Name)
		if name == "" || item.OriginalPrice < 0 || item.SalePrice < 0 {
			return nil, domain.ErrInvalidItems
		}
		items = append(items, domain.FlyerItem{
			ID:            s.genID.Generate(),
			FlyerID:       flyerID,
			Name:          name,
			OriginalPrice: item.OriginalPrice,
			SalePrice:     item.SalePrice,
			SortOrder:     idx,
		})
	}
	return items, nil
}

type flyerDetails struct {
	storeName  string
	category   string
	title      string
	subtitle   string
	tags       []string
	validFrom  string
	validUntil string
	sharePoint int64
	qrPoint    int64
}

func checkDetails(d flyerDetails) (flyerDetails, error) {
	d.storeName = strings.TrimSpace(d.storeName)
	d.title = strings.TrimSpace(d.title)
	d.category = strings.TrimSpace(d.category)
	d.subtitle = strings.TrimSpace(d.subtitle)
	if d.storeName == "" || d.title == "" || d.category == "" || d.validFrom == "" || d.validUntil == "" {
		return d, domain.ErrInvalidFlyer
	}
	if err := validateDates(d.validFrom, d.validUntil); err != nil {
		return d, err
	}
	if d.sharePoint < 0 || d.qrPoint < 0 {
		return d, domain.ErrInvalidPoints
	}
	if d.sharePoint == 0 {
		d.sharePoint = defaultSharePoint
	}
	d.tags = normalizeTags(d.tags)
	return d, nil
}

func (d flyerDetails) apply(flyer *domain.Flyer, now time.Time) {
	flyer.StoreName = d.storeName
	flyer.Slug = slug.Make(d.storeName + " " + d.title)
	flyer.Category = d.category
	flyer.Title = d.title
	flyer.Subtitle = d.subtitle
	flyer.Tags = datatypes.JSONSlice[string](d.tags)
	flyer.ValidFrom = d.validFrom
	flyer.ValidUntil = d.validUntil
	flyer.SharePoint = d.sharePoint
	flyer.QRPoint = d.qrPoint
	flyer.UpdatedAt = now
}

func validateDates(from, until string) error {
	start, err := time.Parse(domain.DateLayout, from)
	if err != nil {
		return domain.ErrInvalidDateRange
	}
	end, err := time.Parse(domain.DateLayout, until)
	if err != nil {
		return domain.ErrInvalidDateRange
	}
	if start.After(end) {
		return domain.ErrInvalidDateRange
	}
	return nil
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
