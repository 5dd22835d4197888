package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apps"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/middleware"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	userHandler *handlers.UserHandler,
	plugins []apps.Plugin,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Health (no tenant required)
	api.Get("/health", healthHandler.Check)

	// Auth: public, stricter limit of 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// Protected auth routes - middleware on individual routes so the public
	// ones above stay open.
	jwt := middleware.JWTProtected(cfg)
	bank := middleware.BankMatchesToken()
	api.Post("/auth/logout", jwt, bank, authHandler.Logout)
	api.Delete("/auth/account", jwt, bank, authHandler.DeleteAccount)
	api.Get("/auth/me", jwt, bank, authHandler.Me)

	// Admin panel (protected + admin required)
	admin := api.Group("/admin", jwt, bank, middleware.AdminRequired(db, cfg))
	admin.Get("/users", userHandler.ListUsers)
	admin.Put("/users/:id", userHandler.UpdateUser)

	// Plugin routes for any signed-in user; plugins add role guards per route.
	protected := api.Group("/p", jwt, bank)
	for _, p := range plugins {
		p.RegisterRoutes(protected, db, cfg)
		if ap, ok := p.(apps.AdminPlugin); ok {
			ap.RegisterAdminRoutes(admin, db, cfg)
		}
	}
}
