package deliveries

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apps/communities"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/scanguard"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/validator"
)

type Plugin struct {
	registry *tenant.Registry
	validate *validator.Validator
	guard    scanguard.Guard
	handler  *Handler
}

func New(registry *tenant.Registry, validate *validator.Validator, guard scanguard.Guard) *Plugin {
	return &Plugin{registry: registry, validate: validate, guard: guard}
}

func (p *Plugin) ID() string { return "deliveries" }

func (p *Plugin) Models() []interface{} {
	return []interface{}{
		&Delivery{},
		&Volunteer{},
	}
}

func (p *Plugin) handlerFor(db *gorm.DB) *Handler {
	if p.handler == nil {
		registry := communities.NewService(db, p.registry, p.validate)
		p.handler = NewHandler(
			NewService(db),
			NewScheduler(db, registry, NewCodeAllocator()),
			NewRedeemer(db, p.guard),
		)
	}
	return p.handler
}

func (p *Plugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	h := p.handlerFor(db)

	beneficiary := middleware.RequireRole(db, cfg, models.RoleBeneficiary)
	router.Get("/deliveries/mine", beneficiary, h.Mine)
	router.Get("/deliveries/mine/code", beneficiary, h.MyCode)

	staff := middleware.RequireRole(db, cfg, models.RoleStaff, models.RoleAdmin)
	router.Get("/deliveries/assigned", staff, h.Assigned)
	router.Post("/deliveries/:id/redeem", staff, h.Redeem)
	router.Put("/deliveries/:id/en-route", staff, h.EnRoute)
}

func (p *Plugin) RegisterAdminRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	h := p.handlerFor(db)

	router.Post("/deliveries/schedule", h.Schedule)
	router.Get("/deliveries", h.List)
	router.Get("/deliveries/:id", h.Get)
}
