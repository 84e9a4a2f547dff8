package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/flyerpoint/internal/audit/domain"
	authdomain "github.com/smallbiznis/flyerpoint/internal/auth/domain"
	"github.com/smallbiznis/flyerpoint/pkg/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectReward     = "reward"
	ObjectPoints     = "points"
	ObjectFlyer      = "flyer"
	ObjectBudget     = "budget"
	ObjectWithdrawal = "withdrawal"
	ObjectUser       = "user"
	ObjectDashboard  = "dashboard"
	ObjectLedger     = "ledger"
	ObjectAuditLog   = "audit_log"
)

const (
	ActionRewardEarn = "reward.earn"

	ActionPointsUse  = "points.use"
	ActionPointsView = "points.view"

	ActionFlyerView     = "flyer.view"
	ActionFlyerCreate   = "flyer.create"
	ActionFlyerManage   = "flyer.manage"
	ActionFlyerModerate = "flyer.moderate"

	ActionBudgetCharge = "budget.charge"
	ActionBudgetView   = "budget.view"

	ActionWithdrawalRequest = "withdrawal.request"
	ActionWithdrawalView    = "withdrawal.view"
	ActionWithdrawalProcess = "withdrawal.process"

	ActionUserView        = "user.view"
	ActionUserManage      = "user.manage"
	ActionBusinessApprove = "business.approve"

	ActionDashboardView   = "dashboard.view"
	ActionLedgerReconcile = "ledger.reconcile"
	ActionAuditLogView    = "audit_log.view"
)

type Service interface {
	Authorize(ctx context.Context, principal authdomain.Principal, object, action string) error
}

var (
	ErrForbidden    = errs.New(errs.Forbidden, "forbidden", "you do not have permission to do this")
	ErrInvalidActor = errs.New(errs.Unauthorized, "invalid_actor", "authentication required")
	ErrInvalidRule  = errs.New(errs.InvalidArgument, "invalid_rule", "object and action are required")
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, principal authdomain.Principal, object, action string) error {
	object = strings.TrimSpace(object)
	action = strings.TrimSpace(action)
	if object == "" || action == "" {
		return ErrInvalidRule
	}

	subject, roleName, err := resolveActor(principal)
	if err != nil {
		return err
	}
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("object", object),
			zap.String("action", action),
		)
		s.auditDenied(ctx, principal, subject, object, action)
		return ErrForbidden
	}
	return nil
}

func resolveActor(principal authdomain.Principal) (string, string, error) {
	role := strings.ToLower(strings.TrimSpace(principal.Role))
	switch role {
	case authdomain.RoleAdmin:
		if principal.Subject != authdomain.AdminSubject {
			return "", "", ErrInvalidActor
		}
		return authdomain.AdminSubject, "role:admin", nil
	case authdomain.RoleUser, authdomain.RoleBusiness:
		if principal.UserID == 0 {
			return "", "", ErrInvalidActor
		}
		return fmt.Sprintf("user:%s", principal.UserID), "role:" + role, nil
	default:
		return "", "", ErrInvalidActor
	}
}

// ensureGrouping keeps exactly one role link per subject.
func (s *ServiceImpl) ensureGrouping(subject, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 || rule[1] == roleName {
			continue
		}
		params := make([]interface{}, 0, len(rule))
		for _, value := range rule {
			params = append(params, value)
		}
		if _, err := s.enforcer.RemoveGroupingPolicy(params...); err != nil {
			return err
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, principal authdomain.Principal, subject, object, action string) {
	if s.auditSvc == nil {
		return
	}
	actorType := auditdomain.ActorTypeUser
	if principal.IsAdmin() {
		actorType = auditdomain.ActorTypeAdmin
	}
	_ = s.auditSvc.Record(ctx, auditdomain.Entry{
		ActorType:  actorType,
		ActorID:    principal.Subject,
		Action:     "authorization.denied",
		TargetType: "authorization",
		TargetID:   object,
		Metadata: map[string]any{
			"object":  object,
			"action":  action,
			"role":    principal.Role,
			"subject": subject,
		},
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Users earn and spend points.
		{"role:user", ObjectReward, ActionRewardEarn},
		{"role:user", ObjectPoints, ActionPointsUse},
		{"role:user", ObjectPoints, ActionPointsView},
		{"role:user", ObjectFlyer, ActionFlyerView},
		{"role:user", ObjectWithdrawal, ActionWithdrawalRequest},

		// Businesses fund rewards for their own flyers.
		{"role:business", ObjectFlyer, ActionFlyerView},
		{"role:business", ObjectFlyer, ActionFlyerCreate},
		{"role:business", ObjectFlyer, ActionFlyerManage},
		{"role:business", ObjectBudget, ActionBudgetCharge},
		{"role:business", ObjectBudget, ActionBudgetView},
		{"role:business", ObjectPoints, ActionPointsView},
		{"role:business", ObjectWithdrawal, ActionWithdrawalRequest},

		// Admin panel.
		{"role:admin", ObjectFlyer, ActionFlyerView},
		{"role:admin", ObjectFlyer, ActionFlyerCreate},
		{"role:admin", ObjectFlyer, ActionFlyerModerate},
		{"role:admin", ObjectUser, ActionUserView},
		{"role:admin", ObjectUser, ActionUserManage},
		{"role:admin", ObjectUser, ActionBusinessApprove},
		{"role:admin", ObjectWithdrawal, ActionWithdrawalView},
		{"role:admin", ObjectWithdrawal, ActionWithdrawalProcess},
		{"role:admin", ObjectDashboard, ActionDashboardView},
		{"role:admin", ObjectLedger, ActionLedgerReconcile},
		{"role:admin", ObjectAuditLog, ActionAuditLogView},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
