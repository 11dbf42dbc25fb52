package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/thusa/managed-reports/internal/auth"
	"github.com/thusa/managed-reports/internal/config"
	"github.com/thusa/managed-reports/internal/domain"
	"github.com/thusa/managed-reports/internal/events"
	"github.com/thusa/managed-reports/internal/observability"
	"github.com/thusa/managed-reports/internal/repository"
)

var (
	// ErrAccountNotFound is returned when no account matches the submitted email.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountInactive is returned for deactivated accounts regardless of password.
	ErrAccountInactive = errors.New("account inactive")
	// ErrCredentialMismatch is returned when the password does not match.
	ErrCredentialMismatch = errors.New("credential mismatch")
	// ErrAccountExists is returned when provisioning an email that is taken.
	ErrAccountExists = errors.New("account already exists")
)

// Login outcomes recorded in metrics and failure events.
const (
	loginSucceeded = "succeeded"
	loginNotFound  = "not_found"
	loginInactive  = "inactive"
	loginMismatch  = "mismatch"
	loginError     = "error"
)

// LoginResult carries the authenticated account and its freshly issued token.
type LoginResult struct {
	Account *domain.Account
	Token   string
	Claims  auth.Claims
}

// AuthService coordinates login and account provisioning.
type AuthService struct {
	accounts   repository.AccountRepository
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	issuer     string
	lifetime   auth.ClaimsOption
	bcryptCost int
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	Accounts   repository.AccountRepository
	Tokens     *auth.TokenManager
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher()
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = config.DefaultIssuer
	}
	return &AuthService{
		accounts:   deps.Accounts,
		tokens:     deps.Tokens,
		dispatcher: dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		issuer:     issuer,
		lifetime:   auth.WithLifetime(cfg.TokenTTL()),
		bcryptCost: cfg.BcryptCost,
	}
}

// Login verifies credentials and issues a token for the account.
//
// The MFA-verified flag is cleared before any credential check, whatever the
// outcome. Store failures are returned wrapped; the sentinel errors above
// describe every credential rejection.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if err := s.accounts.ResetMFAVerification(ctx, email); err != nil {
		s.metrics.RecordLogin(loginError)
		return nil, fmt.Errorf("reset mfa verification: %w", err)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.rejectLogin(ctx, email, loginNotFound)
			return nil, ErrAccountNotFound
		}
		s.metrics.RecordLogin(loginError)
		return nil, fmt.Errorf("load account: %w", err)
	}

	if !account.Active {
		s.rejectLogin(ctx, email, loginInactive)
		return nil, ErrAccountInactive
	}

	ok, err := auth.VerifyPassword(password, account.PasswordHash)
	if err != nil {
		s.metrics.RecordLogin(loginError)
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.rejectLogin(ctx, email, loginMismatch)
		return nil, ErrCredentialMismatch
	}

	claims := auth.NewClaims(account.Email, s.issuer, account.Role, s.tokens.Now(), s.lifetime)
	token, err := s.tokens.Issue(claims)
	if err != nil {
		s.metrics.RecordLogin(loginError)
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.metrics.RecordLogin(loginSucceeded)
	s.publish(ctx, events.NewEvent(events.EventLoginSucceeded, account.Email, claims.IssuedAt,
		events.LoginSucceededPayload{Role: account.Role.String()}))

	return &LoginResult{Account: account, Token: token, Claims: claims}, nil
}

// ProvisionAccount creates an active account with a bcrypt-hashed password.
// provisionedBy names the acting admin and is only used for the audit event.
func (s *AuthService) ProvisionAccount(ctx context.Context, email, password string, role domain.Role, provisionedBy string) (*domain.Account, error) {
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, ErrAccountExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load account: %w", err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &domain.Account{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		// Another writer may have inserted the same email since the lookup.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account provisioned",
		zap.String("email", email),
		zap.Stringer("role", role),
		zap.String("provisioned_by", provisionedBy),
	)
	s.publish(ctx, events.NewEvent(events.EventAccountProvisioned, email, s.tokens.Now(),
		events.AccountProvisionedPayload{Role: role.String(), ProvisionedBy: provisionedBy}))

	return account, nil
}

// SeedAdmin makes sure a System Admin account exists for the configured
// bootstrap credentials. An empty email disables seeding.
func (s *AuthService) SeedAdmin(ctx context.Context, email, password string) error {
	if email == "" {
		return nil
	}
	if password == "" {
		return errors.New("admin password required when admin email is set")
	}

	_, err := s.ProvisionAccount(ctx, email, password, domain.RoleSystemAdmin, "bootstrap")
	if errors.Is(err, ErrAccountExists) {
		s.logger.Debug("bootstrap admin already present", zap.String("email", email))
		return nil
	}
	return err
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func (s *AuthService) rejectLogin(ctx context.Context, email, reason string) {
	s.metrics.RecordLogin(reason)
	s.logger.Info("login rejected", zap.String("email", email), zap.String("reason", reason))
	s.publish(ctx, events.NewEvent(events.EventLoginFailed, email, s.tokens.Now(),
		events.LoginFailedPayload{Reason: reason}))
}

// publish never fails the caller; event delivery is best effort.
func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("auth event not delivered", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
