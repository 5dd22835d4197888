package communities

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}

func (h *Handler) ListCommunities(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	list, err := h.service.ListCommunities(c.UserContext(), sess.BankID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"error": false, "communities": list})
}

func (h *Handler) CreateCommunity(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	var req CommunityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	community, err := h.service.UpsertCommunity(c.UserContext(), sess.BankID, nil, &req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"error": false, "community": community})
}

func (h *Handler) UpdateCommunity(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid community ID",
		})
	}

	var req CommunityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	community, err := h.service.UpsertCommunity(c.UserContext(), sess.BankID, &id, &req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"error": false, "community": community})
}

func (h *Handler) DeleteCommunity(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid community ID",
		})
	}

	if err := h.service.DeleteCommunity(c.UserContext(), sess.BankID, id); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"error": false, "message": "Community deleted"})
}

func (h *Handler) ListBeneficiaries(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid community ID",
		})
	}

	community, err := h.service.GetCommunity(c.UserContext(), sess.BankID, id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	users, err := h.service.BeneficiariesOf(c.UserContext(), sess.BankID, community.Name)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"error": false, "community": community, "beneficiaries": users})
}

func (h *Handler) GetTemplate(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	tpl, err := h.service.GetTemplate(c.UserContext(), sess.BankID)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"error": false, "template": tpl})
}

func (h *Handler) UpsertTemplateProduct(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	var req TemplateProductRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	productID, err := h.service.UpsertTemplateProduct(c.UserContext(), sess.BankID, c.Params("product_id"), &req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"error": false, "product_id": productID})
}

func (h *Handler) RemoveTemplateProduct(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	if err := h.service.RemoveTemplateProduct(c.UserContext(), sess.BankID, c.Params("product_id")); err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"error": false, "message": "Product removed"})
}
