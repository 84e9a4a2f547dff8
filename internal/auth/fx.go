package auth

import (
	"github.com/smallbiznis/flyerpoint/internal/auth/service"
	"github.com/smallbiznis/flyerpoint/internal/auth/token"
	"github.com/smallbiznis/flyerpoint/internal/clock"
	"github.com/smallbiznis/flyerpoint/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(newTokenManager),
	fx.Provide(service.New),
)

func newTokenManager(cfg config.Config, clk clock.Clock) *token.Manager {
	return token.NewManager(cfg.AuthJWTSecret, cfg.AuthTokenTTL, cfg.AdminTokenTTL, clk)
}
