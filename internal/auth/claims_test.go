package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/thusa/managed-reports/internal/domain"
)

func TestDefaultClaims(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 500_000_000, time.UTC)

	claims := DefaultClaims(now)

	assert.Empty(t, claims.Subject)
	assert.Empty(t, claims.Issuer)
	assert.Equal(t, domain.RoleCustomer, claims.Role)
	assert.Equal(t, now.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, claims.IssuedAt.Add(24*time.Hour), claims.ExpiresAt)
}

func TestNewClaims_OverridesIdentityKeepsTimestampPolicy(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	claims := NewClaims("jane@example.com", "issuer", domain.RoleAdmin, now)

	assert.Equal(t, "jane@example.com", claims.Subject)
	assert.Equal(t, "issuer", claims.Issuer)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, int64(86400), claims.ExpiresAt.Unix()-claims.IssuedAt.Unix())
}

func TestNewClaims_Options(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	pinned := time.Unix(1_600_000_000, 0)

	claims := NewClaims("jane@example.com", "issuer", domain.RoleAdmin, now,
		WithIssuedAt(pinned),
		WithLifetime(time.Hour),
	)

	assert.Equal(t, pinned.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, pinned.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestNewClaims_AllowsEmptySubject(t *testing.T) {
	claims := NewClaims("", "", domain.RoleCustomer, time.Unix(0, 0))
	assert.Empty(t, claims.Subject)
}

func TestClaims_Expired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	claims := NewClaims("jane@example.com", "issuer", domain.RoleAdmin, now)

	assert.False(t, claims.Expired(now.Add(86399*time.Second)))
	assert.True(t, claims.Expired(now.Add(86400*time.Second)))
}
