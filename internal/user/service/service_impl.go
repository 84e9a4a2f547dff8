package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/internal/auth/password"
	"github.com/smallbiznis/flyerpoint/internal/clock"
	"github.com/smallbiznis/flyerpoint/internal/user/domain"
	"github.com/smallbiznis/flyerpoint/pkg/db"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minPasswordLength = 6

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.User{}, err
	}
	if len(req.Password) < minPasswordLength {
		return domain.User{}, domain.ErrWeakPassword
	}
	nickname := strings.TrimSpace(req.Nickname)
	if nickname == "" {
		return domain.User{}, domain.ErrInvalidNickname
	}
	role := domain.RoleUser
	if raw := strings.TrimSpace(req.Role); raw != "" {
		parsed, ok := domain.ParseRole(raw)
		if !ok {
			return domain.User{}, domain.ErrInvalidRole
		}
		role = parsed
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := s.clock.Now()
	user := domain.User{
		ID:           s.genID.Generate(),
		Nickname:     nickname,
		Email:        &email,
		PasswordHash: &hashed,
		Provider:     domain.ProviderLocal,
		Role:         role,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.User{}, domain.ErrEmailTaken
		}
		return domain.User{}, err
	}

	s.log.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)
	return user, nil
}

func (s *Service) Authenticate(ctx context.Context, req domain.LoginRequest) (domain.User, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	user, err := s.repo.FindByEmail(ctx, s.db, email)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil || user.PasswordHash == nil || !password.Verify(req.Password, *user.PasswordHash) {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	if !user.IsActive() {
		return domain.User{}, domain.ErrUserSuspended
	}
	return *user, nil
}

// EnsureFederated returns the account bound to an external identity,
// creating it on first contact.
func (s *Service) EnsureFederated(ctx context.Context, identity domain.FederatedIdentity) (domain.User, error) {
	provider := strings.ToLower(strings.TrimSpace(identity.Provider))
	providerID := strings.TrimSpace(identity.ProviderID)
	if provider == "" || provider == domain.ProviderLocal || providerID == "" {
		return domain.User{}, domain.ErrInvalidIdentity
	}

	existing, err := s.repo.FindByProvider(ctx, s.db, provider, providerID)
	if err != nil {
		return domain.User{}, err
	}
	if existing != nil {
		if !existing.IsActive() {
			return domain.User{}, domain.ErrUserSuspended
		}
		return *existing, nil
	}

	nickname := strings.TrimSpace(identity.Nickname)
	if nickname == "" {
		nickname = provider + " user"
	}
	now := s.clock.Now()
	user := domain.User{
		ID:         s.genID.Generate(),
		Nickname:   nickname,
		Provider:   provider,
		ProviderID: &providerID,
		Role:       domain.RoleUser,
		Status:     domain.StatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if email, err := normalizeEmail(identity.Email); err == nil {
		user.Email = &email
	}

	if err := s.repo.Insert(ctx, s.db, &user); err != nil {
		if !db.IsDuplicateKeyErr(err) {
			return domain.User{}, err
		}
		// A concurrent first contact may have won, or the email belongs to a
		// local account. Retry the lookup before giving up.
		winner, findErr := s.repo.FindByProvider(ctx, s.db, provider, providerID)
		if findErr != nil {
			return domain.User{}, findErr
		}
		if winner == nil {
			return domain.User{}, domain.ErrEmailTaken
		}
		return *winner, nil
	}
	return user, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.User, error) {
	user, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.User{}, err
	}
	if user == nil {
		return domain.User{}, domain.ErrUserNotFound
	}
	return *user, nil
}

func (s *Service) UpdateNickname(ctx context.Context, id snowflake.ID, nickname string) (domain.User, error) {
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return domain.User{}, domain.ErrInvalidNickname
	}
	if _, err := s.repo.UpdateNickname(ctx, s.db, id, nickname, s.clock.Now()); err != nil {
		return domain.User{}, err
	}
	return s.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, req domain.ListUserRequest) (domain.ListUserResponse, error) {
	filter := domain.ListUserFilter{
		Search:   strings.TrimSpace(req.Search),
		Approved: req.Approved,
	}
	if raw := strings.TrimSpace(req.Role); raw != "" {
		role, ok := domain.ParseRole(raw)
		if !ok {
			return domain.ListUserResponse{}, domain.ErrInvalidRole
		}
		filter.Role = role
	}

	items, err := s.repo.List(ctx, s.db, filter, req.Pagination)
	if err != nil {
		return domain.ListUserResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, req.Pagination.Size(), func(u *domain.User) string {
		return u.ID.String()
	})

	users := make([]domain.User, 0, len(items))
	for _, item := range items {
		users = append(users, *item)
	}
	return domain.ListUserResponse{PageInfo: pageInfo, Users: users}, nil
}

func (s *Service) SetStatus(ctx context.Context, id snowflake.ID, raw string) (domain.User, error) {
	status, ok := domain.ParseStatus(strings.TrimSpace(raw))
	if !ok {
		return domain.User{}, domain.ErrInvalidStatus
	}
	if _, err := s.Get(ctx, id); err != nil {
		return domain.User{}, err
	}
	if _, err := s.repo.UpdateStatus(ctx, s.db, id, status, s.clock.Now()); err != nil {
		return domain.User{}, err
	}

	s.log.Info("user status changed",
		zap.String("user_id", id.String()),
		zap.String("status", string(status)),
	)
	return s.Get(ctx, id)
}

func (s *Service) SetBusinessApproval(ctx context.Context, id snowflake.ID, approved bool) (domain.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if !user.IsBusiness() {
		return domain.User{}, domain.ErrNotBusiness
	}
	if _, err := s.repo.UpdateBusinessApproval(ctx, s.db, id, approved, s.clock.Now()); err != nil {
		return domain.User{}, err
	}

	s.log.Info("business approval changed",
		zap.String("user_id", id.String()),
		zap.Bool("approved", approved),
	)
	return s.Get(ctx, id)
}

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", domain.ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", domain.ErrInvalidEmail
	}
	return email, nil
}
