package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/bankcore/internal/payments"
)

// RegisterPaymentRoutes wires payment endpoints. Rate limiting runs before
// idempotency so replays count against the caller.
func RegisterPaymentRoutes(r fiber.Router, h *payments.Handler, rateLimiter, idempotency fiber.Handler) {
	r.Post("/transfer", rateLimiter, idempotency, h.Transfer)
}
