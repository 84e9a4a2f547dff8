package token

import (
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/flyerpoint/internal/auth/domain"
	"github.com/smallbiznis/flyerpoint/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(clk clock.Clock) *Manager {
	return NewManager("test-secret", time.Hour, 10*time.Minute, clk)
}

func TestIssueAndParseUser(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	m := newManager(clk)

	tok, err := m.IssueUser(snowflake.ID(1234), domain.RoleBusiness)
	require.NoError(t, err)

	principal, err := m.Parse(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(1234), principal.UserID)
	assert.Equal(t, domain.RoleBusiness, principal.Role)
	assert.False(t, principal.IsAdmin())
}

func TestAdminTokenSurvivesNewManager(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	tok, err := newManager(clk).IssueAdmin()
	require.NoError(t, err)

	// A different instance with the same secret accepts the token.
	principal, err := newManager(clk).Parse(tok.AccessToken)
	require.NoError(t, err)
	assert.True(t, principal.IsAdmin())
}

func TestParseExpired(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	m := newManager(clk)
	tok, err := m.IssueAdmin()
	require.NoError(t, err)

	clk.Advance(11 * time.Minute)
	_, err = m.Parse(tok.AccessToken)
	assert.True(t, errors.Is(err, domain.ErrTokenExpired))
}

func TestParseRejectsForeignSignature(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	other := NewManager("other-secret", time.Hour, time.Hour, clk)
	tok, err := other.IssueUser(snowflake.ID(1), domain.RoleUser)
	require.NoError(t, err)

	_, err = newManager(clk).Parse(tok.AccessToken)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}

func TestParseRejectsNoneAlgorithm(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	claims := domain.Claims{
		Role: domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   domain.AdminSubject,
			ExpiresAt: jwt.NewNumericDate(clk.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = newManager(clk).Parse(unsigned)
	assert.True(t, errors.Is(err, domain.ErrInvalidToken))
}
