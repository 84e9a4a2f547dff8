package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/pkg/errs"
	"gorm.io/gorm"
)

// Posting moves points in or out of a user's balance and records the line.
type Posting struct {
	UserID      snowflake.ID
	Type        EntryType
	Amount      int64
	SourceType  SourceType
	SourceID    *snowflake.ID
	Description string
}

type Reconciliation struct {
	UserID     snowflake.ID `json:"userId"`
	Balance    int64        `json:"balance"`
	Earned     int64        `json:"earned"`
	Used       int64        `json:"used"`
	Consistent bool         `json:"consistent"`
}

type Service interface {
	// Post applies p inside tx and returns the balance after it.
	Post(ctx context.Context, tx *gorm.DB, p Posting) (int64, error)
	History(ctx context.Context, userID snowflake.ID) ([]PointTransaction, error)
	Reconcile(ctx context.Context, userID snowflake.ID) (Reconciliation, error)
	Totals(ctx context.Context) (Totals, error)
}

var (
	ErrInsufficientBalance = errs.New(errs.ResourceExhausted, "insufficient_balance", "insufficient points")
	ErrAccountNotFound     = errs.New(errs.NotFound, "user_not_found", "user not found")
	ErrAccountCannotEarn   = errs.New(errs.Forbidden, "business_cannot_earn", "business accounts cannot earn points")
	ErrInvalidAmount       = errs.New(errs.InvalidArgument, "invalid_amount", "amount must be a positive number")
	ErrInvalidEntryType    = errs.New(errs.InvalidArgument, "invalid_entry_type", "entry type must be earn or use")
)
