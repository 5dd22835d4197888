package tenant

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session is the authenticated caller, passed explicitly into services.
type Session struct {
	BankID string
	UserID uuid.UUID
	Email  string
	Role   string
}

// GetBankID extracts the bank_id from Fiber context locals.
func GetBankID(c *fiber.Ctx) string {
	if bankID, ok := c.Locals("bank_id").(string); ok {
		return bankID
	}
	return ""
}

// GetUserID extracts the user UUID from JWT claims in context.
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	claims, err := claimsFrom(c)
	if err != nil {
		return uuid.Nil, err
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, errors.New("missing sub claim")
	}

	return uuid.Parse(sub)
}

// GetSession builds the caller's session from the JWT and the resolved bank.
// The role claim is informational; guards re-check it against the database.
func GetSession(c *fiber.Ctx) (Session, error) {
	claims, err := claimsFrom(c)
	if err != nil {
		return Session{}, err
	}
	userID, err := GetUserID(c)
	if err != nil {
		return Session{}, err
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	bankID := GetBankID(c)
	if bankID == "" {
		bankID, _ = claims["bank_id"].(string)
	}
	if bankID == "" {
		return Session{}, errors.New("missing bank")
	}

	return Session{BankID: bankID, UserID: userID, Email: email, Role: role}, nil
}

func claimsFrom(c *fiber.Ctx) (jwt.MapClaims, error) {
	token, ok := c.Locals("user").(*jwt.Token)
	if !ok || token == nil {
		return nil, errors.New("invalid token in context")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}

// ClaimedBankID returns the bank_id claim of the token, or "" when there is
// no token.
func ClaimedBankID(c *fiber.Ctx) string {
	claims, err := claimsFrom(c)
	if err != nil {
		return ""
	}
	bankID, _ := claims["bank_id"].(string)
	return bankID
}
