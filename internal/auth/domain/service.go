package domain

import (
	"context"

	userdomain "github.com/smallbiznis/flyerpoint/internal/user/domain"
)

type Session struct {
	Token
	User userdomain.User `json:"user"`
}

type Service interface {
	Register(ctx context.Context, req userdomain.RegisterRequest) (Session, error)
	Login(ctx context.Context, req userdomain.LoginRequest) (Session, error)
	LoginFederated(ctx context.Context, identity userdomain.FederatedIdentity) (Session, error)
	AdminLogin(ctx context.Context, password string) (Token, error)
	Verify(ctx context.Context, token string) (Principal, error)
}
