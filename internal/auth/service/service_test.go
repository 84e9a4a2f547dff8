package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/internal/auth/domain"
	"github.com/smallbiznis/flyerpoint/internal/auth/password"
	"github.com/smallbiznis/flyerpoint/internal/auth/token"
	"github.com/smallbiznis/flyerpoint/internal/clock"
	"github.com/smallbiznis/flyerpoint/internal/config"
	userdomain "github.com/smallbiznis/flyerpoint/internal/user/domain"
	userrepository "github.com/smallbiznis/flyerpoint/internal/user/repository"
	userservice "github.com/smallbiznis/flyerpoint/internal/user/service"
	"github.com/smallbiznis/flyerpoint/pkg/db"
	"go.uber.org/zap"
)

type fixture struct {
	svc     domain.Service
	userSvc userdomain.Service
}

func newTestService(t *testing.T, adminPassword string) fixture {
	t.Helper()

	conn := db.NewTest(t, &userdomain.User{})
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	userSvc := userservice.New(userservice.Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  userrepository.Provide(),
	})

	cfg := config.Config{}
	if adminPassword != "" {
		hash, err := password.Hash(adminPassword)
		if err != nil {
			t.Fatalf("hash admin password: %v", err)
		}
		cfg.AdminPasswordHash = hash
	}

	svc := New(Params{
		Log:     zap.NewNop(),
		Config:  cfg,
		Tokens:  token.NewManager("secret", time.Hour, time.Hour, clk),
		UserSvc: userSvc,
	})
	return fixture{svc: svc, userSvc: userSvc}
}

func TestRegisterIssuesVerifiableToken(t *testing.T) {
	f := newTestService(t, "")

	session, err := f.svc.Register(context.Background(), userdomain.RegisterRequest{
		Email:    "alice@example.com",
		Password: "correct-password",
		Nickname: "alice",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	principal, err := f.svc.Verify(context.Background(), session.AccessToken)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if principal.UserID != session.User.ID || principal.Role != domain.RoleUser {
		t.Fatalf("unexpected principal %+v", principal)
	}
}

func TestVerifyRejectsSuspendedUser(t *testing.T) {
	f := newTestService(t, "")
	ctx := context.Background()

	session, err := f.svc.Register(ctx, userdomain.RegisterRequest{
		Email:    "bob@example.com",
		Password: "correct-password",
		Nickname: "bob",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := f.userSvc.SetStatus(ctx, session.User.ID, "suspended"); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	if _, err := f.svc.Verify(ctx, session.AccessToken); !errors.Is(err, userdomain.ErrUserSuspended) {
		t.Fatalf("expected ErrUserSuspended, got %v", err)
	}
}

func TestAdminLogin(t *testing.T) {
	f := newTestService(t, "admin-pass")
	ctx := context.Background()

	if _, err := f.svc.AdminLogin(ctx, "nope"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	tok, err := f.svc.AdminLogin(ctx, "admin-pass")
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	principal, err := f.svc.Verify(ctx, tok.AccessToken)
	if err != nil {
		t.Fatalf("verify admin: %v", err)
	}
	if !principal.IsAdmin() {
		t.Fatalf("expected admin principal")
	}
}

func TestAdminLoginDisabledWithoutHash(t *testing.T) {
	f := newTestService(t, "")
	if _, err := f.svc.AdminLogin(context.Background(), "anything"); !errors.Is(err, domain.ErrAdminDisabled) {
		t.Fatalf("expected ErrAdminDisabled, got %v", err)
	}
}
