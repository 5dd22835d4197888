package main

import (
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apps/communities"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apps/deliveries"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/scanguard"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/validator"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout in production)
	logging.Setup(cfg.AppEnv)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Bank registry
	registry, err := tenant.LoadFromFile(cfg.BanksConfigPath)
	if err != nil {
		slog.Error("failed to load bank registry", "path", cfg.BanksConfigPath, "error", err)
		os.Exit(1)
	}
	slog.Info("bank registry loaded", "banks", len(registry.All()))

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	// Migrate shared models
	if err := database.MigrateShared(database.DB); err != nil {
		slog.Error("shared migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB, 5*time.Second)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.Default().Handler(),
		pgLogHandler,
	)))

	// Log cleanup
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

	// Duplicate-scan guard
	guard, err := scanguard.New(cfg.RedisURL, cfg.ScanLockTTL)
	if err != nil {
		slog.Error("scan guard init failed", "error", err)
		os.Exit(1)
	}

	validate := validator.New()

	// Services
	authService := services.NewAuthService(database.DB, cfg, registry, validate)
	userService := services.NewUserService(database.DB, validate)

	plugins := []apps.Plugin{
		communities.New(registry, validate),
		deliveries.New(registry, validate, guard),
	}

	// Migrate plugin models
	for _, p := range plugins {
		if models := p.Models(); len(models) > 0 {
			if err := database.MigrateModels(database.DB, models); err != nil {
				slog.Error("plugin migration failed", "plugin", p.ID(), "error", err)
				os.Exit(1)
			}
			slog.Info("plugin migrated", "plugin", p.ID(), "models", len(models))
		}
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler(registry)
	userHandler := handlers.NewUserHandler(userService)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})
	app.Use(middleware.TenantMiddleware(registry))

	// Routes
	routes.Setup(app, cfg, database.DB, authHandler, healthHandler, userHandler, plugins)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if closer, ok := guard.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			slog.Error("scan guard close error", "error", err)
		}
	}

	if err := database.Close(); err != nil {
		slog.Error("database close error", "error", err)
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
			"error", err.Error(),
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
