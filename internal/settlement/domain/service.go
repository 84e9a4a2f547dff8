package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
	"github.com/smallbiznis/flyerpoint/pkg/errs"
)

type CreateWithdrawalRequest struct {
	UserID        snowflake.ID
	Amount        int64  `json:"amount"`
	BankName      string `json:"bankName"`
	AccountNumber string `json:"accountNumber"`
	AccountHolder string `json:"accountHolder"`
}

type ProcessRequest struct {
	WithdrawalID snowflake.ID
	Decision     string
}

type ProcessResult struct {
	ID           snowflake.ID `json:"id"`
	Status       Status       `json:"status"`
	RemainPoints *int64       `json:"remainPoints,omitempty"`
}

type ListWithdrawalRequest struct {
	UserID *snowflake.ID
	Status string
	pagination.Pagination
}

type ListWithdrawalResponse struct {
	pagination.PageInfo
	Withdrawals []Withdrawal `json:"withdrawals"`
}

type Service interface {
	Request(ctx context.Context, req CreateWithdrawalRequest) (Withdrawal, error)
	Process(ctx context.Context, req ProcessRequest) (ProcessResult, error)
	List(ctx context.Context, req ListWithdrawalRequest) (ListWithdrawalResponse, error)
}

var (
	ErrWithdrawalNotFound   = errs.New(errs.NotFound, "withdrawal_not_found", "withdrawal not found")
	ErrWithdrawalNotPending = errs.New(errs.Conflict, "withdrawal_not_pending", "withdrawal has already been processed")
	ErrInvalidDecision      = errs.New(errs.InvalidArgument, "invalid_decision", "decision must be approve or reject")
	ErrInvalidStatus        = errs.New(errs.InvalidArgument, "invalid_status", "status must be pending, approved or rejected")
	ErrInvalidAmount        = errs.New(errs.InvalidArgument, "invalid_amount", "amount must be a positive number")
	ErrInvalidBankAccount   = errs.New(errs.InvalidArgument, "invalid_bank_account", "bank name, account number and account holder are required")
	ErrInvalidPageToken     = errs.New(errs.InvalidArgument, "invalid_page_token", "page token is invalid")
)
