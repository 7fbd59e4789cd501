package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/bankcore/internal/auth"
)

// LocalsIdentity is the fiber Locals key holding the authenticated email.
const LocalsIdentity = "identity_email"

// RequireSession rejects requests without a valid session token. The token is
// read from the auth_token cookie, falling back to an Authorization bearer
// header. On success the identity is bound to the request's user context.
func RequireSession(gate *auth.Gate, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, email, err := gate.Check(c.UserContext(), sessionToken(c))
		if err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				logger.Debug("rejected session token",
					slog.String("path", c.Path()),
					slog.Any("error", err))
			}
			return fiber.NewError(http.StatusUnauthorized, "please log in")
		}

		c.SetUserContext(ctx)
		c.Locals(LocalsIdentity, email)
		return c.Next()
	}
}

func sessionToken(c *fiber.Ctx) string {
	if token := c.Cookies(auth.CookieName); token != "" {
		return token
	}
	authz := c.Get(fiber.HeaderAuthorization)
	if len(authz) > len("bearer ") && strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	return ""
}
