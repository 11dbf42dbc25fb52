package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thusa/managed-reports/internal/api/http/handlers"
	"github.com/thusa/managed-reports/internal/auth"
	"github.com/thusa/managed-reports/internal/domain"
	"github.com/thusa/managed-reports/internal/observability"
	"github.com/thusa/managed-reports/internal/ratelimit"
	"github.com/thusa/managed-reports/internal/repository"
	"github.com/thusa/managed-reports/internal/service"
	apperrors "github.com/thusa/managed-reports/pkg/util"
)

type fakeAccounts struct {
	byEmail map[string]*domain.Account
}

func (f *fakeAccounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	account, ok := f.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return account, nil
}

type fakeAuthenticator struct {
	result *service.LoginResult
	err    error
}

func (f fakeAuthenticator) Login(context.Context, string, string) (*service.LoginResult, error) {
	return f.result, f.err
}

type fakeProvisioner struct {
	err   error
	actor string
}

func (f *fakeProvisioner) ProvisionAccount(_ context.Context, email, _ string, role domain.Role, by string) (*domain.Account, error) {
	f.actor = by
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Account{ID: uuid.New(), Email: email, Role: role, Active: true}, nil
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

type appFixture struct {
	app         *fiber.App
	tokens      *auth.TokenManager
	accounts    *fakeAccounts
	login       *fakeAuthenticator
	provisioner *fakeProvisioner
	postgres    *fakePinger
}

func newAppFixture(t *testing.T, limiter ratelimit.Limiter) *appFixture {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	tokens, err := auth.NewTokenManager("router-secret")
	require.NoError(t, err)

	f := &appFixture{
		tokens: tokens,
		accounts: &fakeAccounts{byEmail: map[string]*domain.Account{
			"admin@example.com":    {ID: uuid.New(), Email: "admin@example.com", Role: domain.RoleAdmin, Active: true, PasswordHash: "$2a$04$hash"},
			"customer@example.com": {ID: uuid.New(), Email: "customer@example.com", Role: domain.RoleCustomer, Active: true},
		}},
		login:       &fakeAuthenticator{},
		provisioner: &fakeProvisioner{},
		postgres:    &fakePinger{},
	}

	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, logger, metrics, MiddlewareConfig{
		Timeout:      time.Second,
		AllowOrigins: []string{"http://localhost:3000"},
		Limiter:      limiter,
		LimitMax:     2,
	})
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("Managed Reports API", "test", f.postgres, fakePinger{err: errors.New("down")}),
		Authentication: handlers.NewAuthenticationHandler(f.login),
		Customers:      handlers.NewCustomersHandler(),
		Accounts:       handlers.NewAccountsHandler(f.provisioner),
		RequiredGuard:  auth.NewGuard(tokens, f.accounts, auth.EnforcementRequired, logger),
		OptionalGuard:  auth.NewGuard(tokens, f.accounts, auth.EnforcementOptional, logger),
		Metrics:        metrics,
	})
	f.app = app
	return f
}

func (f *appFixture) bearer(t *testing.T, email string, role domain.Role) string {
	t.Helper()
	token, err := f.tokens.Issue(auth.NewClaims(email, "issuer", role, f.tokens.Now()))
	require.NoError(t, err)
	return "Bearer " + token
}

func (f *appFixture) do(t *testing.T, method, path, authorization string, body any) (*nethttp.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}
	resp, err := f.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	decoded := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func TestIndexAndHealth(t *testing.T) {
	f := newAppFixture(t, nil)

	resp, body := f.do(t, nethttp.MethodGet, "/", "", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "test", body["version"])

	resp, _ = f.do(t, nethttp.MethodGet, "/health/live", "", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)

	resp, body = f.do(t, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{"postgres": "ok", "redis": "degraded"}, body["dependencies"])

	f.postgres.err = errors.New("down")
	resp, _ = f.do(t, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusServiceUnavailable, resp.StatusCode)
}

func TestLogin_Success(t *testing.T) {
	f := newAppFixture(t, nil)
	account := f.accounts.byEmail["admin@example.com"]
	f.login.result = &service.LoginResult{Account: account, Token: "signed.token.value"}

	resp, body := f.do(t, nethttp.MethodPost, "/authentication/login", "", map[string]string{
		"email": "admin@example.com", "password": "pw",
	})

	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "signed.token.value", body["token"])
	user, ok := body["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Admin", user["role"])
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "password_hash")
}

func TestLogin_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		body   map[string]any
	}{
		{service.ErrAccountNotFound, nethttp.StatusNotFound, map[string]any{"message": "Unauthorized", "reason": handlers.ReasonUserNotFound}},
		{service.ErrAccountInactive, nethttp.StatusUnauthorized, map[string]any{"message": "Unauthorized", "reason": handlers.ReasonAccountDeactivated}},
		{service.ErrCredentialMismatch, nethttp.StatusUnauthorized, map[string]any{"message": "Unauthorized", "reason": handlers.ReasonInvalidPassword}},
		{errors.New("dial tcp: connection refused"), nethttp.StatusInternalServerError, map[string]any{"message": apperrors.MessageInternal}},
	}
	for _, tc := range cases {
		f := newAppFixture(t, nil)
		f.login.err = tc.err

		resp, body := f.do(t, nethttp.MethodPost, "/authentication/login", "", map[string]string{
			"email": "admin@example.com", "password": "pw",
		})
		assert.Equal(t, tc.status, resp.StatusCode, tc.err.Error())
		assert.Equal(t, tc.body, body, tc.err.Error())
	}
}

func TestLogin_RejectsBadPayload(t *testing.T) {
	f := newAppFixture(t, nil)

	resp, body := f.do(t, nethttp.MethodPost, "/authentication/login", "", map[string]string{"email": "admin@example.com"})

	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, apperrors.MessageBadRequest, body["message"])
}

func TestLogin_OptionalGuardRejectsInvalidHeader(t *testing.T) {
	f := newAppFixture(t, nil)

	resp, body := f.do(t, nethttp.MethodPost, "/authentication/login", "Bearer garbage", map[string]string{
		"email": "admin@example.com", "password": "pw",
	})

	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, auth.ReasonInvalidToken, body["reason"])
}

func TestCheck(t *testing.T) {
	f := newAppFixture(t, nil)

	resp, body := f.do(t, nethttp.MethodGet, "/authentication/check", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, auth.ReasonInvalidToken, body["reason"])

	resp, body = f.do(t, nethttp.MethodGet, "/authentication/check", f.bearer(t, "admin@example.com", domain.RoleAdmin), nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, "admin@example.com", body["email"])
	assert.NotContains(t, body, "password")

	resp, body = f.do(t, nethttp.MethodGet, "/authentication/check", f.bearer(t, "ghost@example.com", domain.RoleAdmin), nil)
	assert.Equal(t, nethttp.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, map[string]any{"message": apperrors.MessageInternal}, body)
}

func TestCustomers(t *testing.T) {
	f := newAppFixture(t, nil)
	bearer := f.bearer(t, "customer@example.com", domain.RoleCustomer)

	resp, _ := f.do(t, nethttp.MethodGet, "/customers", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)

	resp, body := f.do(t, nethttp.MethodGet, "/customers", bearer, nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	id := uuid.New()
	resp, body = f.do(t, nethttp.MethodGet, "/customers/"+id.String(), bearer, nil)
	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Equal(t, id.String(), body["customer_id"])

	resp, body = f.do(t, nethttp.MethodGet, "/customers/not-a-uuid", bearer, nil)
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, handlers.ReasonInvalidCustomerID, body["reason"])
}

func TestProvisionAccount(t *testing.T) {
	f := newAppFixture(t, nil)
	payload := map[string]string{"email": "new@example.com", "password": "longenough", "role": "Customer"}

	resp, body := f.do(t, nethttp.MethodPost, "/accounts", f.bearer(t, "customer@example.com", domain.RoleCustomer), payload)
	assert.Equal(t, nethttp.StatusForbidden, resp.StatusCode)
	assert.Equal(t, auth.ReasonInsufficientRole, body["reason"])

	resp, body = f.do(t, nethttp.MethodPost, "/accounts", f.bearer(t, "admin@example.com", domain.RoleAdmin), payload)
	assert.Equal(t, nethttp.StatusCreated, resp.StatusCode)
	assert.Equal(t, "new@example.com", body["email"])
	assert.Equal(t, "admin@example.com", f.provisioner.actor)

	f.provisioner.err = service.ErrAccountExists
	resp, _ = f.do(t, nethttp.MethodPost, "/accounts", f.bearer(t, "admin@example.com", domain.RoleAdmin), payload)
	assert.Equal(t, nethttp.StatusConflict, resp.StatusCode)

	resp, _ = f.do(t, nethttp.MethodPost, "/accounts", f.bearer(t, "admin@example.com", domain.RoleAdmin), map[string]string{"email": "bad"})
	assert.Equal(t, nethttp.StatusBadRequest, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	f := newAppFixture(t, nil)

	resp, body := f.do(t, nethttp.MethodGet, "/nope", "", nil)

	assert.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	assert.Equal(t, map[string]any{"message": apperrors.MessageRouteNotFound}, body)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newAppFixture(t, nil)
	f.do(t, nethttp.MethodGet, "/health/live", "", nil)
	for i := 0; i < 5; i++ {
		resp, _ := f.do(t, nethttp.MethodGet, fmt.Sprintf("/customers/c-%d", i), "", nil)
		require.Equal(t, nethttp.StatusUnauthorized, resp.StatusCode)
		resp, _ = f.do(t, nethttp.MethodGet, fmt.Sprintf("/missing-%d", i), "", nil)
		require.Equal(t, nethttp.StatusNotFound, resp.StatusCode)
	}

	resp, err := f.app.Test(httptest.NewRequest(nethttp.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, nethttp.StatusOK, resp.StatusCode, string(raw))
	scrape := string(raw)
	assert.Contains(t, scrape, `http_errors_total{code="UNAUTHORIZED",method="GET",path="/customers"} 5`)
	assert.NotContains(t, scrape, "c-4")
	assert.NotContains(t, scrape, "missing-")
}

func TestRateLimit(t *testing.T) {
	f := newAppFixture(t, ratelimit.NewMemoryLimiter(2, time.Hour))

	for i := 0; i < 2; i++ {
		resp, _ := f.do(t, nethttp.MethodGet, "/health/live", "", nil)
		assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	}

	resp, body := f.do(t, nethttp.MethodGet, "/health/live", "", nil)
	assert.Equal(t, nethttp.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
	assert.Equal(t, apperrors.MessageTooManyRequest, body["message"])
}

func TestPanicIsRecovered(t *testing.T) {
	logger := zap.NewNop()
	app := fiber.New(fiber.Config{ErrorHandler: NewErrorHandler(logger, nil)})
	RegisterMiddlewares(app, logger, nil, MiddlewareConfig{})
	app.Get("/boom", func(*fiber.Ctx) error { panic("boom") })

	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/boom", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body := map[string]any{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, nethttp.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, map[string]any{"message": apperrors.MessageInternal}, body)
}
