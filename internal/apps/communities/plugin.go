package communities

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/validator"
)

type Plugin struct {
	registry *tenant.Registry
	validate *validator.Validator
	handler  *Handler
}

func New(registry *tenant.Registry, validate *validator.Validator) *Plugin {
	return &Plugin{registry: registry, validate: validate}
}

func (p *Plugin) ID() string { return "communities" }

func (p *Plugin) Models() []interface{} {
	return []interface{}{
		&Community{},
		&TemplateProduct{},
	}
}

func (p *Plugin) handlerFor(db *gorm.DB) *Handler {
	if p.handler == nil {
		p.handler = NewHandler(NewService(db, p.registry, p.validate))
	}
	return p.handler
}

func (p *Plugin) RegisterRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	h := p.handlerFor(db)

	router.Get("/communities", h.ListCommunities)
	router.Get("/template", h.GetTemplate)
}

func (p *Plugin) RegisterAdminRoutes(router fiber.Router, db *gorm.DB, cfg *config.Config) {
	h := p.handlerFor(db)

	router.Post("/communities", h.CreateCommunity)
	router.Put("/communities/:id", h.UpdateCommunity)
	router.Delete("/communities/:id", h.DeleteCommunity)
	router.Get("/communities/:id/beneficiaries", h.ListBeneficiaries)

	router.Post("/template/products", h.UpsertTemplateProduct)
	router.Put("/template/products/:product_id", h.UpsertTemplateProduct)
	router.Delete("/template/products/:product_id", h.RemoveTemplateProduct)
}
