package deliveries

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/apperr"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
)

type Handler struct {
	service   *Service
	scheduler *Scheduler
	redeemer  *Redeemer
}

func NewHandler(service *Service, scheduler *Scheduler, redeemer *Redeemer) *Handler {
	return &Handler{service: service, scheduler: scheduler, redeemer: redeemer}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}

func invalidID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: "Invalid delivery ID",
	})
}

func invalidBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
		Error: true, Message: "Invalid request body",
	})
}

// --- Beneficiary ---

func (h *Handler) Mine(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	list, err := h.service.ListForBeneficiary(c.UserContext(), sess)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"error": false, "deliveries": list})
}

func (h *Handler) MyCode(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	code, err := h.service.CodeFor(c.UserContext(), sess)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"error": false, "code": code})
}

// --- Staff ---

func (h *Handler) Assigned(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	list, err := h.service.ListAssigned(c.UserContext(), sess, c.Query("status"))
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"error": false, "deliveries": list})
}

func (h *Handler) Redeem(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}

	var req RedeemRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	result, err := h.redeemer.Redeem(c.UserContext(), sess.BankID, sess.UserID, id, &req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"error": false, "redemption": result})
}

func (h *Handler) EnRoute(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}

	d, err := h.redeemer.MarkEnRoute(c.UserContext(), sess.BankID, id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"error": false, "delivery": d})
}

// --- Admin ---

func (h *Handler) Schedule(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	var req ScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c)
	}

	result, err := h.scheduler.Schedule(c.UserContext(), sess.BankID, &req)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"error": false, "schedule": result})
}

func (h *Handler) List(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	filter := ListFilter{
		Status: c.Query("status"),
		Limit:  c.QueryInt("limit", defaultPageSize),
		Offset: c.QueryInt("offset", 0),
	}
	if raw := c.Query("community_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid community ID",
			})
		}
		filter.CommunityID = &id
	}

	list, total, err := h.service.List(c.UserContext(), sess.BankID, filter)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"error": false, "deliveries": list, "total": total})
}

func (h *Handler) Get(c *fiber.Ctx) error {
	sess, err := tenant.GetSession(c)
	if err != nil {
		return unauthorized(c)
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return invalidID(c)
	}

	d, err := h.service.Get(c.UserContext(), sess.BankID, id)
	if err != nil {
		return apperr.Respond(c, err)
	}
	return c.JSON(fiber.Map{"error": false, "delivery": d})
}
