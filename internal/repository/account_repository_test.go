package repository

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/thusa/managed-reports/internal/domain"
	"github.com/thusa/managed-reports/internal/observability"
)

func TestMapCreateError(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	assert.ErrorIs(t, mapCreateError(unique), ErrDuplicate)
	assert.ErrorIs(t, mapCreateError(fmt.Errorf("insert: %w", unique)), ErrDuplicate)

	notNull := &pgconn.PgError{Code: "23502"}
	assert.Same(t, notNull, mapCreateError(notNull))

	other := errors.New("conn closed")
	assert.Equal(t, other, mapCreateError(other))
	assert.NoError(t, mapCreateError(nil))
}

func TestResolveRole_KnownRoles(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	repo := &accountRepository{logger: zap.New(core), metrics: observability.NewMetrics()}

	for _, role := range domain.Roles() {
		assert.Equal(t, role, repo.resolveRole("jane@example.com", role.String()))
	}
	assert.Zero(t, logs.Len())
}

func TestResolveRole_UnknownFallsBackWithWarning(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	metrics := observability.NewMetrics()
	repo := &accountRepository{logger: zap.New(core), metrics: metrics}

	role := repo.resolveRole("jane@example.com", "Superuser")

	assert.Equal(t, domain.RoleCustomer, role)
	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "Superuser", warnings[0].ContextMap()["role"])
	assert.Equal(t, "jane@example.com", warnings[0].ContextMap()["email"])

	expected := `
# HELP auth_role_fallback_total Unrecognized role names resolved to Customer.
# TYPE auth_role_fallback_total counter
auth_role_fallback_total{source="store"} 1
`
	require.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected), "auth_role_fallback_total"))
}
