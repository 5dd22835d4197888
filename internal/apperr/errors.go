// Package apperr classifies domain errors so every handler can turn them into
// the same user-facing response.
package apperr

import (
	"errors"
	"fmt"
	"log/slog"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/foodbank-backend/internal/dto"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrMismatch   = errors.New("mismatch")
	ErrStore      = errors.New("store unavailable")
)

// Error is a classified error with a message safe to show to the user.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Is(target error) bool { return target == e.kind }

func Validation(msg string) *Error { return &Error{kind: ErrValidation, msg: msg} }

func NotFound(msg string) *Error { return &Error{kind: ErrNotFound, msg: msg} }

func Conflict(msg string) *Error { return &Error{kind: ErrConflict, msg: msg} }

func Mismatch(msg string) *Error { return &Error{kind: ErrMismatch, msg: msg} }

// Store wraps a failure of the underlying store. The result matches both
// ErrStore and the original error.
func Store(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// FromDB maps gorm.ErrRecordNotFound to notFound and everything else to a
// store error.
func FromDB(op string, err error, notFound *Error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil {
		return notFound
	}
	return Store(op, err)
}

// Status returns the HTTP status for err.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrMismatch):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, ErrStore):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// Message returns the text to show the user. Store and unclassified errors
// never leak their details.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	if errors.Is(err, ErrStore) {
		return "Service temporarily unavailable, please retry"
	}
	return "Internal server error"
}

// Respond writes err as the standard error body. Server-side failures are
// logged with the request id and reported to Sentry when a hub is attached.
func Respond(c *fiber.Ctx, err error) error {
	status := Status(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.Locals("requestid"),
			"error", err,
		)
		if hub := sentryfiber.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: Message(err)})
}
