package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/flyerpoint/internal/audit/domain"
	"github.com/smallbiznis/flyerpoint/internal/audit/repository"
	"github.com/smallbiznis/flyerpoint/internal/clock"
	obscontext "github.com/smallbiznis/flyerpoint/internal/observability/context"
	"github.com/smallbiznis/flyerpoint/pkg/db"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(t *testing.T) auditdomain.Service {
	t.Helper()
	conn := db.NewTest(t, &auditdomain.AuditLog{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 4, 10, 3, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestRecordResolvesActorFromContext(t *testing.T) {
	svc := newService(t)
	ctx := obscontext.WithActor(context.Background(), string(auditdomain.ActorTypeAdmin), "admin")
	ctx = obscontext.WithRequestID(ctx, "req-1")

	require.NoError(t, svc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionWithdrawalApprove,
		TargetType: auditdomain.TargetWithdrawal,
		TargetID:   "42",
		Metadata:   map[string]any{"account_number": "9876543210", "amount": 3000},
	}))

	res, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{TargetID: "42"})
	require.NoError(t, err)
	require.Len(t, res.AuditLogs, 1)

	entry := res.AuditLogs[0]
	assert.Equal(t, "admin", entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "admin", *entry.ActorID)
	assert.Equal(t, "****3210", entry.Metadata["account_number"])
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
}

func TestRecordDefaultsToSystemActor(t *testing.T) {
	svc := newService(t)
	require.NoError(t, svc.Record(context.Background(), auditdomain.Entry{Action: auditdomain.ActionFlyerStatus}))

	res, err := svc.List(context.Background(), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, res.AuditLogs, 1)
	assert.Equal(t, string(auditdomain.ActorTypeSystem), res.AuditLogs[0].ActorType)
	assert.Equal(t, "unknown", res.AuditLogs[0].TargetType)
	assert.Nil(t, res.AuditLogs[0].TargetID)
}

func TestRecordRequiresAction(t *testing.T) {
	svc := newService(t)
	require.ErrorIs(t, svc.Record(context.Background(), auditdomain.Entry{Action: "  "}), auditdomain.ErrInvalidAction)
}

func TestListPaginates(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(ctx, auditdomain.Entry{Action: auditdomain.ActionUserStatus}))
	}

	first, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, first.AuditLogs, 2)
	assert.True(t, first.HasMore)

	second, err := svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	assert.Len(t, second.AuditLogs, 1)
	assert.False(t, second.HasMore)

	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageToken: "%%%"}})
	require.ErrorIs(t, err, auditdomain.ErrInvalidPageToken)
}

func TestListFiltersByActorAndTarget(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	require.NoError(t, svc.Record(ctx, auditdomain.Entry{
		ActorType: auditdomain.ActorTypeAdmin, ActorID: "admin",
		Action: auditdomain.ActionFlyerStatus, TargetType: auditdomain.TargetFlyer, TargetID: "7",
	}))
	require.NoError(t, svc.Record(ctx, auditdomain.Entry{
		ActorType: auditdomain.ActorTypeUser, ActorID: "99",
		Action: "admin.login_failed", TargetType: "admin", TargetID: "admin",
	}))

	res, err := svc.List(ctx, auditdomain.ListAuditLogRequest{ActorID: "admin"})
	require.NoError(t, err)
	require.Len(t, res.AuditLogs, 1)
	assert.Equal(t, auditdomain.ActionFlyerStatus, res.AuditLogs[0].Action)

	res, err = svc.List(ctx, auditdomain.ListAuditLogRequest{TargetType: "admin", ActorType: "user"})
	require.NoError(t, err)
	require.Len(t, res.AuditLogs, 1)
	assert.Equal(t, "admin.login_failed", res.AuditLogs[0].Action)
}
