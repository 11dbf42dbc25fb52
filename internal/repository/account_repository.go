package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/thusa/managed-reports/internal/domain"
	"github.com/thusa/managed-reports/internal/observability"
)

// ErrNotFound is returned when no account matches.
var ErrNotFound = pgx.ErrNoRows

// ErrDuplicate is returned when an account with the same email already exists.
var ErrDuplicate = errors.New("account email already exists")

const uniqueViolation = "23505"

// AccountRepository defines persistence access for login accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	ResetMFAVerification(ctx context.Context, email string) error
}

type accountRepository struct {
	pool    *pgxpool.Pool
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewAccountRepository returns a Postgres-backed implementation.
func NewAccountRepository(pool *pgxpool.Pool, logger *zap.Logger, metrics *observability.Metrics) AccountRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &accountRepository{pool: pool, logger: logger, metrics: metrics}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	const query = `
        INSERT INTO users (email, password, role, active, mfa_enabled, mfa_secret, mfa_verified)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		account.Email,
		account.PasswordHash,
		account.Role.String(),
		account.Active,
		account.MFAEnabled,
		account.MFASecret,
		account.MFAVerified,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	return mapCreateError(err)
}

// mapCreateError turns a unique violation on users.email into ErrDuplicate.
func mapCreateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicate
	}
	return err
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	const query = `
        SELECT id, email, password, role, active, mfa_enabled, mfa_secret, mfa_verified, created_at, updated_at
        FROM users WHERE email=$1`

	var (
		account domain.Account
		role    string
	)
	if err := r.pool.QueryRow(ctx, query, email).Scan(
		&account.ID,
		&account.Email,
		&account.PasswordHash,
		&role,
		&account.Active,
		&account.MFAEnabled,
		&account.MFASecret,
		&account.MFAVerified,
		&account.CreatedAt,
		&account.UpdatedAt,
	); err != nil {
		return nil, err
	}

	account.Role = r.resolveRole(email, role)
	return &account, nil
}

// resolveRole parses a stored role name, reporting any fallback to Customer.
func (r *accountRepository) resolveRole(email, stored string) domain.Role {
	role, ok := domain.ParseRole(stored)
	if !ok {
		r.logger.Warn("unrecognized stored role, falling back to Customer",
			zap.String("email", email),
			zap.String("role", stored),
		)
		r.metrics.RecordRoleFallback("store")
	}
	return role
}

// ResetMFAVerification clears mfa_verified. Unknown emails are not an error.
func (r *accountRepository) ResetMFAVerification(ctx context.Context, email string) error {
	const query = `
        UPDATE users SET mfa_verified=FALSE, updated_at=NOW()
        WHERE email=$1 AND mfa_verified`

	_, err := r.pool.Exec(ctx, query, email)
	return err
}
