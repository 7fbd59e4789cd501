package accounts

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/bankcore/internal/auth"
	"github.com/congo-pay/bankcore/internal/ledger"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// List returns the caller's account ids.
func (h *Handler) List(c *fiber.Ctx) error {
	owner, ok := auth.IdentityFrom(c.UserContext())
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "please log in")
	}
	ids, err := h.service.List(c.UserContext(), owner)
	if err != nil {
		if errors.Is(err, ErrNoAccounts) {
			return fiber.NewError(http.StatusNotFound, "No accounts found")
		}
		h.logger.Error("list accounts failed", slog.Any("error", err))
		return fiber.NewError(http.StatusServiceUnavailable, "Accounts are temporarily unavailable")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"owner": owner, "accounts": ids})
}

// Details returns the balance of one of the caller's accounts.
func (h *Handler) Details(c *fiber.Ctx) error {
	owner, ok := auth.IdentityFrom(c.UserContext())
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "please log in")
	}
	balance, err := h.service.Balance(c.UserContext(), c.Params("accountId"), owner)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return fiber.NewError(http.StatusNotFound, "Account not found")
		}
		h.logger.Error("account balance failed", slog.Any("error", err))
		return fiber.NewError(http.StatusServiceUnavailable, "Accounts are temporarily unavailable")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account_id": balance.AccountID,
		"balance":    balance.Amount,
		"timestamp":  balance.AsOf,
	})
}
