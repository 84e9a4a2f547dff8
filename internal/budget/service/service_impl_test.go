package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/internal/budget/domain"
	"github.com/smallbiznis/flyerpoint/internal/budget/repository"
	"github.com/smallbiznis/flyerpoint/internal/clock"
	"github.com/smallbiznis/flyerpoint/internal/config"
	flyerdomain "github.com/smallbiznis/flyerpoint/internal/flyer/domain"
	rewarddomain "github.com/smallbiznis/flyerpoint/internal/reward/domain"
	userdomain "github.com/smallbiznis/flyerpoint/internal/user/domain"
	userrepository "github.com/smallbiznis/flyerpoint/internal/user/repository"
	"github.com/smallbiznis/flyerpoint/pkg/db"
	"github.com/smallbiznis/flyerpoint/pkg/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   domain.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	conn := db.NewTest(t,
		&userdomain.User{},
		&domain.BudgetCharge{},
		&flyerdomain.Flyer{},
		&rewarddomain.ShareRecord{},
		&rewarddomain.QuizAttempt{},
		&rewarddomain.VisitVerification{},
	)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 4, 10, 3, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    clk,
		Policy:   config.NewStaticPolicyHolder(config.DefaultRewardPolicy()),
		Repo:     repository.Provide(),
		UserRepo: userrepository.Provide(),
	})
	return fixture{db: conn, node: node, clock: clk, svc: svc}
}

func (f fixture) account(t *testing.T, role userdomain.Role) snowflake.ID {
	t.Helper()
	now := f.clock.Now()
	u := userdomain.User{
		ID:        f.node.Generate(),
		Nickname:  string(role),
		Role:      role,
		Status:    userdomain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.db.Create(&u).Error)
	return u.ID
}

func TestChargeAccumulates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	business := f.account(t, userdomain.RoleBusiness)

	res, err := f.svc.Charge(ctx, domain.ChargeRequest{UserID: business, Amount: 5000})
	require.NoError(t, err)
	assert.Equal(t, domain.ChargeResult{NewBudget: 5000, ChargedAmount: 5000}, res)

	f.clock.Advance(time.Minute)
	res, err = f.svc.Charge(ctx, domain.ChargeRequest{UserID: business, Amount: 5000})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), res.NewBudget)

	history, err := f.svc.History(ctx, business)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.MethodManual, history[0].Method)
	assert.True(t, history[0].CreatedAt.After(history[1].CreatedAt))
}

func TestChargeRange(t *testing.T) {
	f := newFixture(t)
	business := f.account(t, userdomain.RoleBusiness)

	tests := []struct {
		name   string
		amount int64
		ok     bool
	}{
		{name: "below minimum", amount: 999},
		{name: "minimum", amount: 1000, ok: true},
		{name: "maximum", amount: 10_000_000, ok: true},
		{name: "above maximum", amount: 10_000_001},
		{name: "negative", amount: -1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Charge(context.Background(), domain.ChargeRequest{UserID: business, Amount: tt.amount})
			if tt.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, domain.ErrAmountOutOfRange)
			classified, _ := errs.As(err)
			assert.Equal(t, int64(1000), classified.Details["min"])
		})
	}
}

func TestChargeRequiresBusiness(t *testing.T) {
	f := newFixture(t)
	member := f.account(t, userdomain.RoleUser)

	_, err := f.svc.Charge(context.Background(), domain.ChargeRequest{UserID: member, Amount: 5000})
	require.ErrorIs(t, err, domain.ErrNotBusiness)

	_, err = f.svc.Charge(context.Background(), domain.ChargeRequest{UserID: 7, Amount: 5000})
	require.ErrorIs(t, err, userdomain.ErrUserNotFound)

	var charges int64
	require.NoError(t, f.db.Model(&domain.BudgetCharge{}).Count(&charges).Error)
	assert.Zero(t, charges)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	business := f.account(t, userdomain.RoleBusiness)
	member := f.account(t, userdomain.RoleUser)
	_, err := f.svc.Charge(ctx, domain.ChargeRequest{UserID: business, Amount: 2000})
	require.NoError(t, err)

	now := f.clock.Now()
	owned := flyerdomain.Flyer{
		ID: f.node.Generate(), OwnerID: &business, StoreName: "Shop", Slug: "shop", Category: "food",
		Title: "Deal", ValidFrom: "2025-04-01", ValidUntil: "2025-04-30", ViewCount: 8,
		Status: flyerdomain.StatusApproved, CreatedAt: now, UpdatedAt: now,
	}
	other := owned
	other.ID = f.node.Generate()
	other.OwnerID = nil
	other.ViewCount = 100
	require.NoError(t, f.db.Create(&owned).Error)
	require.NoError(t, f.db.Create(&other).Error)

	require.NoError(t, f.db.Create(&rewarddomain.ShareRecord{ID: f.node.Generate(), UserID: member, FlyerID: owned.ID, Points: 10, CreatedAt: now}).Error)
	require.NoError(t, f.db.Create(&rewarddomain.ShareRecord{ID: f.node.Generate(), UserID: member, FlyerID: other.ID, Points: 10, CreatedAt: now}).Error)
	require.NoError(t, f.db.Create(&rewarddomain.QuizAttempt{ID: f.node.Generate(), UserID: member, FlyerID: owned.ID, QuizID: 1, SubmittedAnswer: "x", IsCorrect: true, PointsEarned: 30, CreatedAt: now}).Error)
	require.NoError(t, f.db.Create(&rewarddomain.VisitVerification{ID: f.node.Generate(), UserID: member, FlyerID: owned.ID, VisitDate: "2025-04-10", PointsEarned: 100, CreatedAt: now}).Error)

	stats, err := f.svc.Stats(ctx, business)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Flyers)
	assert.Equal(t, int64(8), stats.Views)
	assert.Equal(t, int64(1), stats.Shares)
	assert.Equal(t, int64(1), stats.QuizAttempts)
	assert.Equal(t, int64(1), stats.QuizCorrect)
	assert.Equal(t, int64(1), stats.Visits)
	assert.Equal(t, int64(140), stats.PointsDistributed)
	assert.Equal(t, int64(2000), stats.Budget)
	assert.InDelta(t, 12.5, stats.QuizParticipationRate, 0.001)

	_, err = f.svc.Stats(ctx, member)
	require.ErrorIs(t, err, domain.ErrNotBusiness)
}
