// Package domain contains core types for the auth service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/flyerpoint/pkg/errs"
)

// Role names used in tokens and authorization policies. Admin is not backed
// by a users row.
const (
	RoleUser     = "user"
	RoleBusiness = "business"
	RoleAdmin    = "admin"
)

const AdminSubject = "admin"

// Principal is the verified identity behind a request.
type Principal struct {
	Subject string
	UserID  snowflake.ID
	Role    string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Claims is the signed token payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Token is a signed bearer token returned to clients.
type Token struct {
	AccessToken string    `json:"token"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

var (
	ErrInvalidToken       = errs.New(errs.Unauthorized, "invalid_token", "authentication required")
	ErrTokenExpired       = errs.New(errs.Unauthorized, "token_expired", "session expired")
	ErrInvalidCredentials = errs.New(errs.Unauthorized, "invalid_credentials", "invalid password")
	ErrAdminDisabled      = errs.New(errs.Forbidden, "admin_disabled", "admin login is not configured")
	ErrSigningKeyMissing  = errs.New(errs.Internal, "signing_key_missing", "token signing key is not configured")
)
