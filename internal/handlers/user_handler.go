package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// ListUsers returns the bank's users, optionally filtered by ?role=.
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	users, err := h.userService.ListUsers(c.UserContext(), sess.BankID, c.Query("role"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"error": false, "users": users})
}

func (h *UserHandler) UpdateUser(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid user ID",
		})
	}

	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	user, err := h.userService.UpdateUser(c.UserContext(), sess, id, &req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"error": false, "user": user})
}
