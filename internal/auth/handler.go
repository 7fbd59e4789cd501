package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// CookieName is the cookie carrying the session token.
const CookieName = "auth_token"

// Handler exposes login, logout and the dashboard identity endpoint.
type Handler struct {
	svc          *Service
	secureCookie bool
	logger       *slog.Logger
}

// NewHandler builds the auth HTTP handler. secureCookie marks the session
// cookie Secure and should be set everywhere except local development.
func NewHandler(svc *Service, secureCookie bool, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, secureCookie: secureCookie, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type loginResponse struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login validates credentials, sets the session cookie and returns the token.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil || req.Email == "" || req.Password == "" {
		return fiber.NewError(http.StatusBadRequest, "Email and password are required")
	}

	session, err := h.svc.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return fiber.NewError(http.StatusUnauthorized, "Invalid credentials")
		}
		h.logger.Error("login failed", slog.Any("error", err))
		return fiber.NewError(http.StatusServiceUnavailable, "Login is temporarily unavailable")
	}

	c.Cookie(&fiber.Cookie{
		Name:     CookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.Status(http.StatusOK).JSON(loginResponse{
		Email:     session.Identity.Email,
		Name:      session.Identity.Name,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

// Logout discards the client's copy of the token. The token itself stays
// valid until it expires.
func (h *Handler) Logout(c *fiber.Ctx) error {
	c.ClearCookie(CookieName)
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}

// Me returns the identity bound to the request.
func (h *Handler) Me(c *fiber.Ctx) error {
	email, ok := IdentityFrom(c.UserContext())
	if !ok {
		return fiber.NewError(http.StatusUnauthorized, "please log in")
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"email": email})
}
