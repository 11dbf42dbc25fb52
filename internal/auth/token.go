package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/thusa/managed-reports/internal/domain"
	"github.com/thusa/managed-reports/internal/observability"
)

var (
	// ErrExpiredToken means the signature is good but exp has passed.
	ErrExpiredToken = errors.New("token expired")
	// ErrInvalidToken covers malformed tokens, bad signatures and bad claims.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInternal wraps failures that are neither of the above.
	ErrInternal = errors.New("token processing failed")
	// ErrMissingSecret is returned when a TokenManager is built without a key.
	ErrMissingSecret = errors.New("token signing secret is empty")
)

var signingMethod = jwt.SigningMethodHS256

// TokenManager issues and validates HS256 tokens with a shared secret.
// It holds no mutable state and is safe for concurrent use.
type TokenManager struct {
	secret  []byte
	now     func() time.Time
	logger  *zap.Logger
	metrics *observability.Metrics
}

// TokenOption configures a TokenManager.
type TokenOption func(*TokenManager)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		tm.now = now
	}
}

func WithLogger(logger *zap.Logger) TokenOption {
	return func(tm *TokenManager) {
		tm.logger = logger
	}
}

func WithMetrics(metrics *observability.Metrics) TokenOption {
	return func(tm *TokenManager) {
		tm.metrics = metrics
	}
}

// NewTokenManager builds a new manager. An empty secret is a configuration error.
func NewTokenManager(secret string, opts ...TokenOption) (*TokenManager, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	tm := &TokenManager{
		secret: []byte(secret),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// Now returns the manager's clock reading.
func (tm *TokenManager) Now() time.Time {
	return tm.now()
}

// Issue signs the claims into a compact token string.
func (tm *TokenManager) Issue(claims Claims) (string, error) {
	token := jwt.NewWithClaims(signingMethod, claims.toToken())
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("%w: sign token: %v", ErrInternal, err)
	}
	return signed, nil
}

// Validate verifies the signature, then expiry, and returns the embedded
// claims. Expiry is checked against the exact current time with no leeway.
func (tm *TokenManager) Validate(tokenStr string) (Claims, error) {
	wire := &tokenClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, wire, func(*jwt.Token) (interface{}, error) {
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)
	if err != nil {
		err = classify(err)
		tm.recordFailure(err)
		return Claims{}, err
	}

	role, ok := domain.ParseRole(wire.Role)
	if !ok {
		tm.logger.Warn("unrecognized role in token claims, falling back to Customer",
			zap.String("subject", wire.Subject),
			zap.String("role", wire.Role),
		)
		tm.metrics.RecordRoleFallback("token")
	}

	claims := Claims{
		Subject:   wire.Subject,
		Issuer:    wire.Issuer,
		IssuedAt:  numericTime(wire.IssuedAt),
		ExpiresAt: numericTime(wire.ExpiresAt),
		Role:      role,
	}

	tm.metrics.RecordTokenValidation(observability.TokenValid)
	tm.logger.Info("token authenticated",
		zap.String("subject", claims.Subject),
		zap.String("role", claims.Role.String()),
	)
	return claims, nil
}

func (tm *TokenManager) recordFailure(err error) {
	switch {
	case errors.Is(err, ErrExpiredToken):
		tm.metrics.RecordTokenValidation(observability.TokenExpired)
	case errors.Is(err, ErrInvalidToken):
		tm.metrics.RecordTokenValidation(observability.TokenInvalid)
	default:
		tm.metrics.RecordTokenValidation(observability.TokenInternal)
		tm.logger.Error("token validation failed", zap.Error(err))
	}
}

// classify maps parser errors onto the package error taxonomy. Expiry is
// tested first because the parser reports it wrapped in ErrTokenInvalidClaims.
func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpiredToken
	case errors.Is(err, jwt.ErrTokenMalformed),
		errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrTokenInvalidClaims),
		errors.Is(err, jwt.ErrTokenRequiredClaimMissing),
		errors.Is(err, jwt.ErrTokenNotValidYet),
		errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	default:
		return fmt.Errorf("%w: %v", ErrInternal, err)
	}
}
