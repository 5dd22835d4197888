package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/tenant"
)

// AdminRequired lets through admins of the caller's bank and the
// ADMIN_EMAILS / ADMIN_USER_IDS allow lists.
func AdminRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	return RequireRole(db, cfg, models.RoleAdmin)
}

// RequireRole checks the caller's role against the database on every
// request; the role claim in the token may be stale. Admins listed in the
// config pass every role check.
func RequireRole(db *gorm.DB, cfg *config.Config, roles ...string) fiber.Handler {
	adminEmails := parseCSV(cfg.AdminEmails)
	adminUserIDs := parseCSV(cfg.AdminUserIDs)
	forbidden := "Admin access required"
	if !contains(roles, models.RoleAdmin) || len(roles) > 1 {
		forbidden = "Insufficient role: requires " + strings.Join(roles, " or ")
	}

	return func(c *fiber.Ctx) error {
		// Check admin token header
		if cfg.AdminToken != "" && contains(roles, models.RoleAdmin) {
			if c.Get("X-Admin-Token") == cfg.AdminToken {
				return c.Next()
			}
		}

		token, ok := c.Locals("user").(*jwt.Token)
		if !ok || token == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Invalid claims",
			})
		}

		email, _ := claims["email"].(string)
		sub, _ := claims["sub"].(string)

		// Check config-based admin lists
		if contains(adminEmails, email) || contains(adminUserIDs, sub) {
			return c.Next()
		}

		// Check DB-based role
		if userID, err := uuid.Parse(sub); err == nil {
			bankID := tenant.GetBankID(c)
			if bankID == "" {
				bankID, _ = claims["bank_id"].(string)
			}
			var user models.User
			err := db.Scopes(tenant.ForBank(bankID)).
				First(&user, "id = ? AND status = ?", userID, models.StatusActive).Error
			if err == nil && contains(roles, user.Role) {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: forbidden,
		})
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
