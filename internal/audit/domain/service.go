package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
	"github.com/smallbiznis/flyerpoint/pkg/errs"
)

// Entry describes one admin decision. Actor fields left empty are taken
// from the request context.
type Entry struct {
	ActorType  ActorType
	ActorID    string
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	ActorID    string
	Since      time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"auditLogs"`
}

type Service interface {
	Record(ctx context.Context, entry Entry) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = errs.New(errs.InvalidArgument, "invalid_page_token", "page token is invalid")
	ErrInvalidAction    = errs.New(errs.InvalidArgument, "invalid_action", "audit action is required")
)
