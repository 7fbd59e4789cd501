package middleware

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/bankcore/internal/logging"
)

func TestRequestIDEchoesOrMints(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(RequestIDFrom(c)) })

	req := httptest.NewRequest(fiber.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "client-id")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(requestIDHeader); got != "client-id" {
		t.Fatalf("expected echoed id, got %q", got)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(requestIDHeader); len(got) != 36 {
		t.Fatalf("expected minted uuid, got %q", got)
	}
}

func TestAuditLogsWithoutBody(t *testing.T) {
	var buf bytes.Buffer
	app := fiber.New()
	app.Use(RequestID(), Audit(logging.NewWithWriter(&buf, "info")))
	app.Post("/api/v1/login", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	})

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/login", strings.NewReader(`{"password":"correcthorse"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()

	out := buf.String()
	if strings.Contains(out, "correcthorse") {
		t.Fatalf("request body leaked into audit log: %s", out)
	}
	if !strings.Contains(out, `"status":401`) || !strings.Contains(out, "request_id") {
		t.Fatalf("audit line missing fields: %s", out)
	}
}
