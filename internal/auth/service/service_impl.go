package service

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/flyerpoint/internal/auth/domain"
	"github.com/smallbiznis/flyerpoint/internal/auth/password"
	"github.com/smallbiznis/flyerpoint/internal/auth/token"
	"github.com/smallbiznis/flyerpoint/internal/config"
	userdomain "github.com/smallbiznis/flyerpoint/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Config  config.Config
	Tokens  *token.Manager
	UserSvc userdomain.Service
}

type Service struct {
	log               *zap.Logger
	tokens            *token.Manager
	userSvc           userdomain.Service
	adminPasswordHash string
}

func New(p Params) domain.Service {
	return &Service{
		log:               p.Log.Named("auth.service"),
		tokens:            p.Tokens,
		userSvc:           p.UserSvc,
		adminPasswordHash: strings.TrimSpace(p.Config.AdminPasswordHash),
	}
}

func (s *Service) Register(ctx context.Context, req userdomain.RegisterRequest) (domain.Session, error) {
	user, err := s.userSvc.Register(ctx, req)
	if err != nil {
		return domain.Session{}, err
	}
	return s.session(user)
}

func (s *Service) Login(ctx context.Context, req userdomain.LoginRequest) (domain.Session, error) {
	user, err := s.userSvc.Authenticate(ctx, req)
	if err != nil {
		return domain.Session{}, err
	}
	return s.session(user)
}

func (s *Service) LoginFederated(ctx context.Context, identity userdomain.FederatedIdentity) (domain.Session, error) {
	user, err := s.userSvc.EnsureFederated(ctx, identity)
	if err != nil {
		return domain.Session{}, err
	}
	return s.session(user)
}

func (s *Service) AdminLogin(ctx context.Context, pw string) (domain.Token, error) {
	if s.adminPasswordHash == "" {
		return domain.Token{}, domain.ErrAdminDisabled
	}
	if !password.Verify(pw, s.adminPasswordHash) {
		s.log.Warn("admin login rejected")
		return domain.Token{}, domain.ErrInvalidCredentials
	}
	return s.tokens.IssueAdmin()
}

// Verify resolves a bearer token. User tokens are re-checked against the
// account so suspension takes effect before the token expires.
func (s *Service) Verify(ctx context.Context, raw string) (domain.Principal, error) {
	principal, err := s.tokens.Parse(strings.TrimSpace(raw))
	if err != nil {
		return domain.Principal{}, err
	}
	if principal.IsAdmin() {
		return principal, nil
	}

	user, err := s.userSvc.Get(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, userdomain.ErrUserNotFound) {
			return domain.Principal{}, domain.ErrInvalidToken
		}
		return domain.Principal{}, err
	}
	if !user.IsActive() {
		return domain.Principal{}, userdomain.ErrUserSuspended
	}
	principal.Role = string(user.Role)
	return principal, nil
}

func (s *Service) session(user userdomain.User) (domain.Session, error) {
	tok, err := s.tokens.IssueUser(user.ID, string(user.Role))
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{Token: tok, User: user}, nil
}
