package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/internal/audit"
	"github.com/smallbiznis/flyerpoint/internal/auth"
	"github.com/smallbiznis/flyerpoint/internal/authorization"
	"github.com/smallbiznis/flyerpoint/internal/budget"
	"github.com/smallbiznis/flyerpoint/internal/clock"
	"github.com/smallbiznis/flyerpoint/internal/config"
	"github.com/smallbiznis/flyerpoint/internal/flyer"
	"github.com/smallbiznis/flyerpoint/internal/ledger"
	"github.com/smallbiznis/flyerpoint/internal/migration"
	"github.com/smallbiznis/flyerpoint/internal/observability"
	"github.com/smallbiznis/flyerpoint/internal/ratelimit"
	"github.com/smallbiznis/flyerpoint/internal/reward"
	"github.com/smallbiznis/flyerpoint/internal/server"
	"github.com/smallbiznis/flyerpoint/internal/settlement"
	"github.com/smallbiznis/flyerpoint/internal/user"
	"github.com/smallbiznis/flyerpoint/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		ratelimit.Module,

		// Domains
		audit.Module,
		authorization.Module,
		user.Module,
		auth.Module,
		flyer.Module,
		ledger.Module,
		reward.Module,
		budget.Module,
		settlement.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
