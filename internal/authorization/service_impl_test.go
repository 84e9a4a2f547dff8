package authorization

import (
	"context"
	"testing"

	authdomain "github.com/smallbiznis/flyerpoint/internal/auth/domain"
	"github.com/smallbiznis/flyerpoint/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewEnforcer(db.NewTest(t))
	require.NoError(t, err)
	return NewService(Params{Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeByRole(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	member := authdomain.Principal{Subject: "11", UserID: 11, Role: authdomain.RoleUser}
	business := authdomain.Principal{Subject: "22", UserID: 22, Role: authdomain.RoleBusiness}
	admin := authdomain.Principal{Subject: authdomain.AdminSubject, Role: authdomain.RoleAdmin}

	tests := []struct {
		name      string
		principal authdomain.Principal
		object    string
		action    string
		allowed   bool
	}{
		{"user earns", member, ObjectReward, ActionRewardEarn, true},
		{"business cannot earn", business, ObjectReward, ActionRewardEarn, false},
		{"business charges budget", business, ObjectBudget, ActionBudgetCharge, true},
		{"user cannot charge budget", member, ObjectBudget, ActionBudgetCharge, false},
		{"admin processes withdrawals", admin, ObjectWithdrawal, ActionWithdrawalProcess, true},
		{"user cannot process withdrawals", member, ObjectWithdrawal, ActionWithdrawalProcess, false},
		{"admin cannot earn", admin, ObjectReward, ActionRewardEarn, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.Authorize(ctx, tt.principal, tt.object, tt.action)
			if tt.allowed {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrForbidden)
		})
	}
}

func TestAuthorizeFollowsRoleChange(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	p := authdomain.Principal{Subject: "33", UserID: 33, Role: authdomain.RoleUser}
	require.NoError(t, svc.Authorize(ctx, p, ObjectReward, ActionRewardEarn))

	p.Role = authdomain.RoleBusiness
	require.ErrorIs(t, svc.Authorize(ctx, p, ObjectReward, ActionRewardEarn), ErrForbidden)
	require.NoError(t, svc.Authorize(ctx, p, ObjectFlyer, ActionFlyerCreate))
}

func TestAuthorizeRejectsBadInput(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, authdomain.Principal{Role: authdomain.RoleUser}, ObjectReward, ActionRewardEarn), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, authdomain.Principal{Subject: "x", Role: authdomain.RoleAdmin}, ObjectUser, ActionUserManage), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, authdomain.Principal{Subject: "1", UserID: 1, Role: "root"}, ObjectUser, ActionUserManage), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, authdomain.Principal{Subject: "1", UserID: 1, Role: authdomain.RoleUser}, "", ""), ErrInvalidRule)
}
