package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
)

type HealthHandler struct {
	registry *tenant.Registry
}

func NewHealthHandler(registry *tenant.Registry) *HealthHandler {
	return &HealthHandler{registry: registry}
}

func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := database.Ping(); err != nil {
		dbStatus = "unhealthy: " + err.Error()
	}

	return c.JSON(dto.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		DB:        dbStatus,
		BankCount: len(h.registry.All()),
	})
}
