package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/bankcore/internal/accounts"
)

// RegisterAccountRoutes wires the account list and details endpoints, each
// behind its own rate limiter.
func RegisterAccountRoutes(r fiber.Router, h *accounts.Handler, listLimiter, detailsLimiter fiber.Handler) {
	r.Get("/accounts", listLimiter, h.List)
	r.Get("/accounts/:accountId", detailsLimiter, h.Details)
}
