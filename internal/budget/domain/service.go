package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/pkg/errs"
)

type ChargeRequest struct {
	UserID snowflake.ID
	Amount int64
}

type ChargeResult struct {
	NewBudget     int64 `json:"newBudget"`
	ChargedAmount int64 `json:"chargedAmount"`
}

type Service interface {
	// Charge tops up a business budget. Charges are not deduplicated.
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	History(ctx context.Context, userID snowflake.ID) ([]BudgetCharge, error)
	Stats(ctx context.Context, userID snowflake.ID) (Stats, error)
}

var (
	ErrAmountOutOfRange = errs.New(errs.InvalidArgument, "amount_out_of_range", "charge amount is out of range")
	ErrNotBusiness      = errs.New(errs.Forbidden, "not_business", "only business accounts can do this")
)
