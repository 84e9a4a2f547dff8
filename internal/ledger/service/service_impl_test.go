package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/internal/clock"
	"github.com/smallbiznis/flyerpoint/internal/config"
	"github.com/smallbiznis/flyerpoint/internal/ledger/domain"
	"github.com/smallbiznis/flyerpoint/internal/ledger/repository"
	userdomain "github.com/smallbiznis/flyerpoint/internal/user/domain"
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
	conn := db.NewTest(t, &userdomain.User{}, &domain.PointTransaction{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 4, 10, 3, 0, 0, 0, time.UTC))

	svc := NewService(Params{
		DB:     conn,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clk,
		Policy: config.NewStaticPolicyHolder(config.DefaultRewardPolicy()),
		Repo:   repository.Provide(),
	})
	return fixture{db: conn, node: node, clock: clk, svc: svc}
}

func (f fixture) account(t *testing.T, role userdomain.Role, balance int64) snowflake.ID {
	t.Helper()
	id := f.node.Generate()
	now := f.clock.Now()
	require.NoError(t, f.db.Create(&userdomain.User{
		ID:           id,
		Nickname:     "member",
		Role:         role,
		Status:       userdomain.StatusActive,
		PointBalance: balance,
		CreatedAt:    now,
		UpdatedAt:    now,
	}).Error)
	return id
}

func TestPostEarnCreditsBalanceAndRecordsLine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.account(t, userdomain.RoleUser, 0)

	balance, err := f.svc.Post(ctx, f.db, domain.Posting{
		UserID:      userID,
		Type:        domain.EntryTypeEarn,
		Amount:      10,
		SourceType:  domain.SourceTypeShare,
		Description: "Spring Sale share reward",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), balance)

	history, err := f.svc.History(ctx, userID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, domain.EntryTypeEarn, history[0].Type)
	assert.Equal(t, int64(10), history[0].Amount)
	assert.Equal(t, "Spring Sale share reward", history[0].Description)
}

func TestPostEarnRejectsBusinessAccount(t *testing.T) {
	f := newFixture(t)
	businessID := f.account(t, userdomain.RoleBusiness, 0)

	_, err := f.svc.Post(context.Background(), f.db, domain.Posting{
		UserID: businessID, Type: domain.EntryTypeEarn, Amount: 10, SourceType: domain.SourceTypeShare,
	})
	require.ErrorIs(t, err, domain.ErrAccountCannotEarn)

	history, err := f.svc.History(context.Background(), businessID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestPostUseRejectsOverdraftWithBalanceDetail(t *testing.T) {
	f := newFixture(t)
	userID := f.account(t, userdomain.RoleUser, 30)

	_, err := f.svc.Post(context.Background(), f.db, domain.Posting{
		UserID: userID, Type: domain.EntryTypeUse, Amount: 50, SourceType: domain.SourceTypePointUse,
	})
	require.ErrorIs(t, err, domain.ErrInsufficientBalance)

	classified, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.ResourceExhausted, classified.Kind)
	assert.Equal(t, int64(30), classified.Details["balance"])
	assert.Contains(t, classified.Message, "balance: 30")

	recon, err := f.svc.Reconcile(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(30), recon.Balance)
}

func TestPostUseDebitsExactBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.account(t, userdomain.RoleUser, 0)

	_, err := f.svc.Post(ctx, f.db, domain.Posting{
		UserID: userID, Type: domain.EntryTypeEarn, Amount: 40, SourceType: domain.SourceTypeQuiz,
	})
	require.NoError(t, err)

	balance, err := f.svc.Post(ctx, f.db, domain.Posting{
		UserID: userID, Type: domain.EntryTypeUse, Amount: 40, SourceType: domain.SourceTypePointUse, Description: "Coffee",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)

	recon, err := f.svc.Reconcile(ctx, userID)
	require.NoError(t, err)
	assert.True(t, recon.Consistent)
	assert.Equal(t, int64(40), recon.Earned)
	assert.Equal(t, int64(40), recon.Used)
}

func TestPostValidatesInput(t *testing.T) {
	f := newFixture(t)
	userID := f.account(t, userdomain.RoleUser, 0)

	tests := []struct {
		name    string
		posting domain.Posting
		want    error
	}{
		{name: "zero amount", posting: domain.Posting{UserID: userID, Type: domain.EntryTypeEarn}, want: domain.ErrInvalidAmount},
		{name: "negative amount", posting: domain.Posting{UserID: userID, Type: domain.EntryTypeUse, Amount: -5}, want: domain.ErrInvalidAmount},
		{name: "unknown type", posting: domain.Posting{UserID: userID, Type: "refund", Amount: 5}, want: domain.ErrInvalidEntryType},
		{name: "unknown user", posting: domain.Posting{UserID: 42, Type: domain.EntryTypeUse, Amount: 5}, want: domain.ErrAccountNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Post(context.Background(), f.db, tt.posting)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReconcileFlagsDrift(t *testing.T) {
	f := newFixture(t)
	userID := f.account(t, userdomain.RoleUser, 25)

	recon, err := f.svc.Reconcile(context.Background(), userID)
	require.NoError(t, err)
	assert.False(t, recon.Consistent)
	assert.Equal(t, int64(25), recon.Balance)
	assert.Zero(t, recon.Earned)
}

func TestHistoryNewestFirstAndCapped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.account(t, userdomain.RoleUser, 0)

	for i := 0; i < 55; i++ {
		f.clock.Advance(time.Minute)
		_, err := f.svc.Post(ctx, f.db, domain.Posting{
			UserID: userID, Type: domain.EntryTypeEarn, Amount: int64(i + 1), SourceType: domain.SourceTypeShare,
		})
		require.NoError(t, err)
	}

	history, err := f.svc.History(ctx, userID)
	require.NoError(t, err)
	require.Len(t, history, 50)
	assert.Equal(t, int64(55), history[0].Amount)
	assert.True(t, history[0].CreatedAt.After(history[1].CreatedAt))
}
