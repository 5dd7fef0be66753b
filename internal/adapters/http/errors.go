package http

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/poigeo/internal/core/domain"
	"github.com/samirrijal/poigeo/internal/core/usecases"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusBadRequest, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusNotFound, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusInternalServerError, "internal_error", msg)
}

// errForbidden returns a 403 error.
func errForbidden(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusForbidden, "forbidden", msg)
}

// errUnprocessable returns a 422 error.
func errUnprocessable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusUnprocessableEntity, "unprocessable", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, fiber.StatusServiceUnavailable, "unavailable", msg)
}

// writeServiceError maps a GeometryService error onto an HTTP status.
// Unclassified errors are logged and reported without their details.
func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case domain.IsValidation(err):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrTableNotAllowed):
		return errForbidden(c, err.Error())
	case errors.Is(err, domain.ErrTableNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrMissingSourceColumns):
		return errUnprocessable(c, err.Error())
	case errors.Is(err, usecases.ErrNoPublisher):
		return errUnavailable(c, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return newError(c, fiber.StatusGatewayTimeout, "timeout", "operation timed out")
	default:
		slog.ErrorContext(c.UserContext(), "request failed", "path", c.Path(), "error", err)
		return errInternal(c, "internal error")
	}
}
