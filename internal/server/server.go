package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/flyerpoint/internal/audit/domain"
	authdomain "github.com/smallbiznis/flyerpoint/internal/auth/domain"
	"github.com/smallbiznis/flyerpoint/internal/authorization"
	budgetdomain "github.com/smallbiznis/flyerpoint/internal/budget/domain"
	"github.com/smallbiznis/flyerpoint/internal/config"
	flyerdomain "github.com/smallbiznis/flyerpoint/internal/flyer/domain"
	ledgerdomain "github.com/smallbiznis/flyerpoint/internal/ledger/domain"
	"github.com/smallbiznis/flyerpoint/internal/observability"
	obslogger "github.com/smallbiznis/flyerpoint/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/flyerpoint/internal/observability/metrics"
	obstracing "github.com/smallbiznis/flyerpoint/internal/observability/tracing"
	"github.com/smallbiznis/flyerpoint/internal/ratelimit"
	rewarddomain "github.com/smallbiznis/flyerpoint/internal/reward/domain"
	settlementdomain "github.com/smallbiznis/flyerpoint/internal/settlement/domain"
	userdomain "github.com/smallbiznis/flyerpoint/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

// rewardLimiter is satisfied by *ratelimit.RewardLimiter, including a nil one.
type rewardLimiter interface {
	AllowUser(ctx context.Context, userID string) (*ratelimit.RateLimitResult, error)
}

type Params struct {
	fx.In

	Engine        *gin.Engine
	Log           *zap.Logger
	AuthSvc       authdomain.Service
	AuthzSvc      authorization.Service
	UserSvc       userdomain.Service
	FlyerSvc      flyerdomain.Service
	RewardSvc     rewarddomain.Service
	LedgerSvc     ledgerdomain.Service
	BudgetSvc     budgetdomain.Service
	SettlementSvc settlementdomain.Service
	AuditSvc      auditdomain.Service
	RewardLimiter *ratelimit.RewardLimiter `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics      `optional:"true"`
}

type Server struct {
	engine        *gin.Engine
	log           *zap.Logger
	authSvc       authdomain.Service
	authzSvc      authorization.Service
	userSvc       userdomain.Service
	flyerSvc      flyerdomain.Service
	rewardSvc     rewarddomain.Service
	ledgerSvc     ledgerdomain.Service
	budgetSvc     budgetdomain.Service
	settlementSvc settlementdomain.Service
	auditSvc      auditdomain.Service
	limiter       rewardLimiter
	obsMetrics    *obsmetrics.Metrics
}

func NewServer(p Params) *Server {
	return &Server{
		engine:        p.Engine,
		log:           p.Log.Named("http.server"),
		authSvc:       p.AuthSvc,
		authzSvc:      p.AuthzSvc,
		userSvc:       p.UserSvc,
		flyerSvc:      p.FlyerSvc,
		rewardSvc:     p.RewardSvc,
		ledgerSvc:     p.LedgerSvc,
		budgetSvc:     p.BudgetSvc,
		settlementSvc: p.SettlementSvc,
		auditSvc:      p.AuditSvc,
		limiter:       p.RewardLimiter,
		obsMetrics:    p.ObsMetrics,
	}
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"data": data})
}
