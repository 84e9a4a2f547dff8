package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/flyerpoint/pkg/db/pagination"
	"github.com/smallbiznis/flyerpoint/pkg/errs"
)

type RegisterRequest struct {
	Email    string
	Password string
	Nickname string
	Role     string
}

type LoginRequest struct {
	Email    string
	Password string
}

// FederatedIdentity is an external identity already verified by an OAuth
// provider.
type FederatedIdentity struct {
	Provider   string
	ProviderID string
	Nickname   string
	Email      string
}

type ListUserRequest struct {
	Role     string
	Search   string
	Approved *bool
	pagination.Pagination
}

type ListUserFilter struct {
	Role     Role
	Search   string
	Approved *bool
}

type ListUserResponse struct {
	pagination.PageInfo
	Users []User `json:"users"`
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (User, error)
	Authenticate(ctx context.Context, req LoginRequest) (User, error)
	EnsureFederated(ctx context.Context, identity FederatedIdentity) (User, error)
	Get(ctx context.Context, id snowflake.ID) (User, error)
	UpdateNickname(ctx context.Context, id snowflake.ID, nickname string) (User, error)
	List(ctx context.Context, req ListUserRequest) (ListUserResponse, error)
	SetStatus(ctx context.Context, id snowflake.ID, status string) (User, error)
	SetBusinessApproval(ctx context.Context, id snowflake.ID, approved bool) (User, error)
}

var (
	ErrUserNotFound       = errs.New(errs.NotFound, "user_not_found", "user not found")
	ErrEmailTaken         = errs.New(errs.Conflict, "email_taken", "email is already registered")
	ErrInvalidCredentials = errs.New(errs.Unauthorized, "invalid_credentials", "invalid email or password")
	ErrUserSuspended      = errs.New(errs.Forbidden, "user_suspended", "account is suspended")
	ErrInvalidEmail       = errs.New(errs.InvalidArgument, "invalid_email", "email is invalid")
	ErrWeakPassword       = errs.New(errs.InvalidArgument, "weak_password", "password must be at least 6 characters")
	ErrInvalidNickname    = errs.New(errs.InvalidArgument, "invalid_nickname", "nickname is required")
	ErrInvalidRole        = errs.New(errs.InvalidArgument, "invalid_role", "role must be user or business")
	ErrInvalidStatus      = errs.New(errs.InvalidArgument, "invalid_status", "status must be active or suspended")
	ErrInvalidIdentity    = errs.New(errs.InvalidArgument, "invalid_identity", "provider identity is required")
	ErrNotBusiness        = errs.New(errs.Forbidden, "not_business", "only business accounts can do this")
)
