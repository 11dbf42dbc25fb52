package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/thusa/managed-reports/internal/api/http"
	"github.com/thusa/managed-reports/internal/api/http/handlers"
	"github.com/thusa/managed-reports/internal/auth"
	"github.com/thusa/managed-reports/internal/config"
	"github.com/thusa/managed-reports/internal/events"
	"github.com/thusa/managed-reports/internal/observability"
	"github.com/thusa/managed-reports/internal/persistence"
	"github.com/thusa/managed-reports/internal/ratelimit"
	"github.com/thusa/managed-reports/internal/repository"
	"github.com/thusa/managed-reports/internal/service"
	"github.com/thusa/managed-reports/internal/worker"
	"github.com/thusa/managed-reports/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App.Env)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.FS, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret,
		auth.WithLogger(logger),
		auth.WithMetrics(metrics),
	)
	if err != nil {
		logger.Fatal("failed to init token manager", zap.Error(err))
	}

	dispatcher := events.NewInMemoryDispatcher()
	var eventWorker *worker.AuthEventWorker
	if cfg.Events.AMQPURL != "" {
		publisher := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Queue, logger)
		defer publisher.Close()
		eventWorker = worker.NewAuthEventWorker(publisher, 256, logger)
		eventWorker.Register(dispatcher)
		eventWorker.Start(ctx)
	}

	accountRepo := repository.NewAccountRepository(pg.PoolHandle(), logger, metrics)
	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		Accounts:   accountRepo,
		Tokens:     tokens,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	if err := authService.SeedAdmin(ctx, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		logger.Fatal("failed to seed admin account", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.App.BodyLimitBytes,
		ErrorHandler: httptransport.NewErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:      cfg.App.RequestTimeout(),
		AllowOrigins: cfg.App.AllowOrigins,
		Limiter:      newLimiter(cfg.RateLimit, redis, logger),
		LimitMax:     cfg.RateLimit.Max,
		LimitKey:     limitKey(cfg.RateLimit),
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Authentication: handlers.NewAuthenticationHandler(authService),
		Customers:      handlers.NewCustomersHandler(),
		Accounts:       handlers.NewAccountsHandler(authService),
		RequiredGuard:  auth.NewGuard(tokens, accountRepo, auth.EnforcementRequired, logger),
		OptionalGuard:  auth.NewGuard(tokens, accountRepo, auth.EnforcementOptional, logger),
		Metrics:        metrics,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.App.Addr()))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	cancel()
	if eventWorker != nil {
		eventWorker.Wait()
	}
}

// newLimiter prefers Redis so replicas share counters and falls back to an
// in-process limiter when Redis was unreachable at startup.
func newLimiter(cfg config.RateLimitConfig, redis *persistence.Redis, logger *zap.Logger) ratelimit.Limiter {
	if !cfg.Enabled {
		return nil
	}
	if redis.Available() {
		return ratelimit.NewRedisLimiter(redis.Client, cfg.Prefix, cfg.Max, cfg.Window)
	}
	logger.Warn("rate limiter using in-process counters")
	return ratelimit.NewMemoryLimiter(cfg.Max, cfg.Window)
}

func limitKey(cfg config.RateLimitConfig) ratelimit.KeyFunc {
	if cfg.PerIP {
		return ratelimit.ClientIPKey
	}
	return ratelimit.GlobalKey
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
