package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/thusa/managed-reports/internal/api/http/handlers"
	"github.com/thusa/managed-reports/internal/auth"
	"github.com/thusa/managed-reports/internal/domain"
	"github.com/thusa/managed-reports/internal/observability"
	apperrors "github.com/thusa/managed-reports/pkg/util"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Authentication *handlers.AuthenticationHandler
	Customers      *handlers.CustomersHandler
	Accounts       *handlers.AccountsHandler
	RequiredGuard  *auth.Guard
	OptionalGuard  *auth.Guard
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Index)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authentication := app.Group("/authentication")
	authentication.Post("/login", cfg.OptionalGuard.Handle, cfg.Authentication.Login)
	authentication.Get("/check", cfg.RequiredGuard.Handle, cfg.Authentication.Check)

	customers := app.Group("/customers", cfg.RequiredGuard.Handle)
	customers.Get("/", cfg.Customers.List)
	customers.Get("/:customer_id", cfg.Customers.Get)

	accounts := app.Group("/accounts", cfg.RequiredGuard.Handle, auth.RequireRole(domain.RoleAdmin, domain.RoleSystemAdmin))
	accounts.Post("/", cfg.Accounts.Create)

	app.Use(func(c *fiber.Ctx) error {
		return apperrors.NewRouteNotFound()
	})
}
