package payments

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/bankcore/internal/auth"
	"github.com/congo-pay/bankcore/internal/ledger"
)

// Handler exposes the transfer endpoint.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

// NewHandler constructs a payment handler.
func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Fields are kept as text so a missing amount and a non-numeric one can be
// told apart. JSON numbers are accepted as well as strings.
type transferRequest struct {
	From   jsonNumber  `json:"from" form:"from"`
	To     jsonNumber  `json:"to" form:"to"`
	Amount *jsonNumber `json:"amount" form:"amount"`
}

// Transfer moves funds between two accounts for the authenticated caller.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	caller, ok := auth.IdentityFrom(c.UserContext())
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "please log in")
	}

	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Amount == nil || strings.TrimSpace(string(*req.Amount)) == "" {
		return fiber.NewError(http.StatusBadRequest, "Amount is required and must be a number")
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(string(*req.Amount)), 10, 64)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "Amount must be a number")
	}

	res, err := h.service.Transfer(c.UserContext(), TransferInput{
		Source: strings.TrimSpace(string(req.From)),
		Target: strings.TrimSpace(string(req.To)),
		Amount: amount,
		Caller: caller,
	})
	if err != nil {
		var verr *ValidationError
		switch {
		case errors.As(err, &verr):
			return fiber.NewError(http.StatusBadRequest, verr.Message)
		case errors.Is(err, ledger.ErrInvalidTransfer):
			return fiber.NewError(http.StatusBadRequest, ErrSameAccount.Message)
		case errors.Is(err, ledger.ErrAccountNotFound):
			return fiber.NewError(http.StatusNotFound, "Account not found")
		case errors.Is(err, ledger.ErrTargetNotFound):
			return fiber.NewError(http.StatusNotFound, "Target account not found")
		case errors.Is(err, ledger.ErrInsufficientFunds):
			return fiber.NewError(http.StatusBadRequest, "You don't have that much")
		default:
			h.logger.Error("transfer failed", slog.String("identity", caller), slog.Any("error", err))
			return fiber.NewError(http.StatusServiceUnavailable, "Transfer could not be completed, try again later")
		}
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"from":         res.Source,
		"to":           res.Target,
		"amount":       res.Amount,
		"message":      res.Message,
		"completed_at": res.CompletedAt,
	})
}

// jsonNumber accepts either a JSON string or a JSON number and keeps its
// textual form.
type jsonNumber string

func (n *jsonNumber) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	*n = jsonNumber(s)
	return nil
}

func (n *jsonNumber) UnmarshalText(b []byte) error {
	*n = jsonNumber(b)
	return nil
}
