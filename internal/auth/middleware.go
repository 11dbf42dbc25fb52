package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/thusa/managed-reports/internal/domain"
	apperrors "github.com/thusa/managed-reports/pkg/util"
)

// Reasons rendered for token failures.
const (
	ReasonTokenExpired = "Token expired."
	ReasonInvalidToken = "Invalid token."
)

const bearerPrefix = "Bearer "

const (
	accountKey         = "auth_account"
	optionalAccountKey = "auth_optional_account"
)

// Enforcement selects how a Guard treats requests without credentials.
type Enforcement int

const (
	// EnforcementRequired validates every request, even with no header.
	EnforcementRequired Enforcement = iota
	// EnforcementOptional lets requests without an Authorization header through.
	EnforcementOptional
)

func (e Enforcement) String() string {
	if e == EnforcementOptional {
		return "optional"
	}
	return "required"
}

// TokenValidator is satisfied by TokenManager.
type TokenValidator interface {
	Validate(token string) (Claims, error)
}

// AccountFinder resolves the account named by a token subject.
type AccountFinder interface {
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
}

// OptionalAccount is attached by an optional guard so handlers can tell it
// apart from the bare account a required guard attaches.
type OptionalAccount struct {
	Account *domain.Account
}

// Guard validates bearer tokens and loads the matching account.
type Guard struct {
	tokens   TokenValidator
	accounts AccountFinder
	mode     Enforcement
	logger   *zap.Logger
}

// NewGuard constructs a guard with the given enforcement mode.
func NewGuard(tokens TokenValidator, accounts AccountFinder, mode Enforcement, logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{tokens: tokens, accounts: accounts, mode: mode, logger: logger}
}

// Handle runs the guard pipeline: extract, validate, resolve, attach.
func (g *Guard) Handle(c *fiber.Ctx) error {
	header, present := authorizationHeader(c)
	if !present && g.mode == EnforcementOptional {
		return c.Next()
	}

	account, err := g.authenticate(c.UserContext(), header)
	if err != nil {
		return err
	}

	if g.mode == EnforcementOptional {
		c.Locals(optionalAccountKey, OptionalAccount{Account: account})
	} else {
		c.Locals(accountKey, account)
	}
	return c.Next()
}

func (g *Guard) authenticate(ctx context.Context, header string) (*domain.Account, error) {
	claims, err := g.tokens.Validate(BearerToken(header))
	if err != nil {
		switch {
		case errors.Is(err, ErrExpiredToken):
			return nil, apperrors.NewUnauthorized(ReasonTokenExpired)
		case errors.Is(err, ErrInvalidToken):
			return nil, apperrors.NewUnauthorized(ReasonInvalidToken)
		default:
			return nil, apperrors.NewInternalError(err)
		}
	}

	// A missing account and a failing store are reported the same way.
	account, err := g.accounts.GetByEmail(ctx, claims.Subject)
	if err == nil && account == nil {
		err = errors.New("account lookup returned no account")
	}
	if err != nil {
		g.logger.Error("failed to resolve authenticated account",
			zap.String("subject", claims.Subject),
			zap.String("guard", g.mode.String()),
			zap.Error(err),
		)
		return nil, apperrors.NewInternalError(fmt.Errorf("resolve account: %w", err))
	}
	return account, nil
}

// BearerToken strips a leading "Bearer " from an Authorization header value.
// Values without the prefix are returned unchanged.
func BearerToken(header string) string {
	return strings.TrimPrefix(header, bearerPrefix)
}

// authorizationHeader reports the header value and whether the key was sent at all.
func authorizationHeader(c *fiber.Ctx) (string, bool) {
	values, ok := c.GetReqHeaders()[fiber.HeaderAuthorization]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// AccountFromContext returns the account attached by a required guard.
func AccountFromContext(c *fiber.Ctx) (*domain.Account, bool) {
	account, ok := c.Locals(accountKey).(*domain.Account)
	return account, ok && account != nil
}

// OptionalAccountFromContext returns the wrapper attached by an optional guard.
// ok is false when the request carried no Authorization header.
func OptionalAccountFromContext(c *fiber.Ctx) (OptionalAccount, bool) {
	opt, ok := c.Locals(optionalAccountKey).(OptionalAccount)
	return opt, ok
}
