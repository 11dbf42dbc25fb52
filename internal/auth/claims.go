package auth

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/thusa/managed-reports/internal/domain"
)

// DefaultLifetime is how long an issued token stays valid unless overridden.
const DefaultLifetime = 24 * time.Hour

// Claims describes the signed token payload. Timestamps have second precision
// and ExpiresAt is always IssuedAt plus the token lifetime.
type Claims struct {
	Subject   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Role      domain.Role
}

type claimsConfig struct {
	issuedAt time.Time
	lifetime time.Duration
}

// ClaimsOption overrides the default timestamp policy.
type ClaimsOption func(*claimsConfig)

// WithLifetime replaces DefaultLifetime.
func WithLifetime(lifetime time.Duration) ClaimsOption {
	return func(cfg *claimsConfig) {
		cfg.lifetime = lifetime
	}
}

// WithIssuedAt pins the issue time instead of the supplied clock reading.
func WithIssuedAt(issuedAt time.Time) ClaimsOption {
	return func(cfg *claimsConfig) {
		cfg.issuedAt = issuedAt
	}
}

// NewClaims builds claims for issuance. No validation happens here; an empty
// subject is accepted and rejected, if at all, by whoever consumes the token.
func NewClaims(subject, issuer string, role domain.Role, now time.Time, opts ...ClaimsOption) Claims {
	cfg := claimsConfig{issuedAt: now, lifetime: DefaultLifetime}
	for _, opt := range opts {
		opt(&cfg)
	}

	issuedAt := time.Unix(cfg.issuedAt.Unix(), 0).UTC()
	return Claims{
		Subject:   subject,
		Issuer:    issuer,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(cfg.lifetime.Truncate(time.Second)),
		Role:      role,
	}
}

// DefaultClaims returns the base claims issuance starts from: empty subject
// and issuer, Customer role, issued now and expiring after DefaultLifetime.
func DefaultClaims(now time.Time) Claims {
	return NewClaims("", "", domain.RoleCustomer, now)
}

// Expired reports whether the claims are no longer valid at now.
func (c Claims) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// tokenClaims is the JSON shape carried inside the token.
type tokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func (c Claims) toToken() *tokenClaims {
	return &tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.Subject,
			Issuer:    c.Issuer,
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
		Role: c.Role.String(),
	}
}

func numericTime(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time.UTC()
}
