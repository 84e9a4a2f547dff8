package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/flyerpoint/internal/auth/domain"
	"github.com/smallbiznis/flyerpoint/internal/clock"
)

const issuer = "flyerpoint"

// Manager signs and verifies HMAC bearer tokens. Tokens are stateless, so a
// restart or a second replica accepts every token signed with the same secret.
type Manager struct {
	secret   []byte
	userTTL  time.Duration
	adminTTL time.Duration
	clock    clock.Clock
}

func NewManager(secret string, userTTL, adminTTL time.Duration, clk clock.Clock) *Manager {
	return &Manager{
		secret:   []byte(secret),
		userTTL:  userTTL,
		adminTTL: adminTTL,
		clock:    clk,
	}
}

func (m *Manager) IssueUser(userID snowflake.ID, role string) (domain.Token, error) {
	return m.issue(userID.String(), role, m.userTTL)
}

func (m *Manager) IssueAdmin() (domain.Token, error) {
	return m.issue(domain.AdminSubject, domain.RoleAdmin, m.adminTTL)
}

func (m *Manager) issue(subject, role string, ttl time.Duration) (domain.Token, error) {
	if len(m.secret) == 0 {
		return domain.Token{}, domain.ErrSigningKeyMissing
	}
	now := m.clock.Now()
	expiresAt := now.Add(ttl)
	claims := domain.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return domain.Token{}, err
	}
	return domain.Token{AccessToken: signed, ExpiresAt: expiresAt}, nil
}

func (m *Manager) Parse(tokenString string) (domain.Principal, error) {
	if len(m.secret) == 0 {
		return domain.Principal{}, domain.ErrSigningKeyMissing
	}

	var claims domain.Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.clock.Now),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Principal{}, domain.ErrTokenExpired
		}
		return domain.Principal{}, domain.ErrInvalidToken
	}

	switch claims.Role {
	case domain.RoleAdmin:
		if claims.Subject != domain.AdminSubject {
			return domain.Principal{}, domain.ErrInvalidToken
		}
		return domain.Principal{Subject: claims.Subject, Role: claims.Role}, nil
	case domain.RoleUser, domain.RoleBusiness:
		id, err := strconv.ParseInt(claims.Subject, 10, 64)
		if err != nil || id <= 0 {
			return domain.Principal{}, domain.ErrInvalidToken
		}
		return domain.Principal{Subject: claims.Subject, UserID: snowflake.ID(id), Role: claims.Role}, nil
	default:
		return domain.Principal{}, domain.ErrInvalidToken
	}
}
