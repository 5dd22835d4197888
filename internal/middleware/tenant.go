package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
)

// Paths that don't require tenant identification.
var tenantSkipPaths = []string{
	"/api/health",
}

// TenantMiddleware resolves the caller's food bank from the X-Bank-ID header
// or the bank_id query param. Authenticated routes fall back to the bank_id
// claim of the token when neither is sent.
func TenantMiddleware(registry *tenant.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		path := c.Path()

		for _, skip := range tenantSkipPaths {
			if strings.HasPrefix(path, skip) {
				return c.Next()
			}
		}

		bankID := c.Get("X-Bank-ID")
		if bankID == "" {
			bankID = c.Query("bank_id")
		}
		if bankID == "" {
			// The JWT is parsed after this middleware; routes behind it read
			// the bank_id claim through tenant.GetSession.
			if c.Get(fiber.HeaderAuthorization) != "" {
				return c.Next()
			}
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "X-Bank-ID header is required",
			})
		}

		if !registry.Exists(bankID) {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
				Error:   true,
				Message: "Invalid X-Bank-ID: " + bankID,
			})
		}
		c.Locals("bank_id", bankID)
		return c.Next()
	}
}

// BankMatchesToken refuses requests whose X-Bank-ID names a different bank
// than the one the token was issued for.
func BankMatchesToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := tenant.GetSession(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		if claimed := tenant.ClaimedBankID(c); claimed != "" && claimed != sess.BankID {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Error: true, Message: "Token was issued for another food bank",
			})
		}
		return c.Next()
	}
}
