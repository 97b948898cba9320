package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const correlationIDKey = "correlation_id"

// CorrelationID assigns a request id to every request, honouring an
// X-Correlation-ID header when the caller supplies one.
func CorrelationID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get("X-Correlation-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Locals(correlationIDKey, id)
		c.Set("X-Correlation-ID", id)
		return c.Next()
	}
}

// GetCorrelationID returns the correlation id bound to the request, or an
// empty string when the middleware did not run.
func GetCorrelationID(c *fiber.Ctx) string {
	if id, ok := c.Locals(correlationIDKey).(string); ok {
		return id
	}
	return ""
}
