package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/poigeo/internal/pkg/logging"
)

// RequestIDLogMiddleware copies the Fiber request ID into the user context so
// that every slog.*Context call downstream (usecases, repositories) logs it.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, ok := c.Locals("requestid").(string)
		if !ok || rid == "" {
			return c.Next()
		}

		c.SetUserContext(logging.WithRequestID(c.UserContext(), rid))
		return c.Next()
	}
}
