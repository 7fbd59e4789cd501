package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/bankcore/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, *int64) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	var calls int64
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if owner := c.Get("X-Test-Identity"); owner != "" {
			c.Locals(LocalsIdentity, owner)
		}
		return c.Next()
	})
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		n := atomic.AddInt64(&calls, 1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": n})
	})
	return app, &calls
}

func post(t *testing.T, app *fiber.App, key, owner string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	if owner != "" {
		req.Header.Set("X-Test-Identity", owner)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	app, calls := setupTestApp(t)

	for i := 0; i < 2; i++ {
		status, _ := post(t, app, "", "")
		if status != fiber.StatusCreated {
			t.Fatalf("expected %d got %d", fiber.StatusCreated, status)
		}
	}
	if *calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d times", *calls)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls := setupTestApp(t)

	status, payload := post(t, app, "abc123", "alice@x.com")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	status, cached := post(t, app, "abc123", "alice@x.com")
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status)
	}
	if cached != payload {
		t.Fatalf("expected cached payload %s got %s", payload, cached)
	}
	if *calls != 1 {
		t.Fatalf("handler ran %d times for a replayed key", *calls)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(cached), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
}

func TestIdempotencyKeysAreScopedToIdentity(t *testing.T) {
	app, calls := setupTestApp(t)

	post(t, app, "same-key", "alice@x.com")
	post(t, app, "same-key", "bob@x.com")

	if *calls != 2 {
		t.Fatalf("expected separate executions per identity, got %d", *calls)
	}
}

func TestIdempotencyDisabledWithoutCache(t *testing.T) {
	app := fiber.New()
	app.Use(Idempotency(nil, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	status, _ := post(t, app, "abc", "")
	if status != fiber.StatusNoContent {
		t.Fatalf("expected %d got %d", fiber.StatusNoContent, status)
	}
}

func postBody(t *testing.T, app *fiber.App, key, body string) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(idempotencyKeyHeader, key)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestIdempotencyRejectsReusedKeyWithDifferentBody(t *testing.T) {
	app, calls := setupTestApp(t)

	if status := postBody(t, app, "k1", `{"amount":100}`); status != fiber.StatusCreated {
		t.Fatalf("expected %d got %d", fiber.StatusCreated, status)
	}
	if status := postBody(t, app, "k1", `{"amount":900}`); status != fiber.StatusUnprocessableEntity {
		t.Fatalf("expected %d got %d", fiber.StatusUnprocessableEntity, status)
	}
	if *calls != 1 {
		t.Fatalf("handler ran %d times", *calls)
	}
}

func TestIdempotencyReleasesKeyOnFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	var calls int64
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		if atomic.AddInt64(&calls, 1) == 1 {
			return fiber.NewError(fiber.StatusBadRequest, "You don't have that much")
		}
		return c.SendStatus(fiber.StatusCreated)
	})

	if status := postBody(t, app, "retry-me", "{}"); status != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, status)
	}
	if status := postBody(t, app, "retry-me", "{}"); status != fiber.StatusCreated {
		t.Fatalf("expected retry to execute, got %d", status)
	}
	if calls != 2 {
		t.Fatalf("handler ran %d times", calls)
	}
}

func TestIdempotencyInFlightKeyConflicts(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	store := replayStore{cache: cache, ttl: time.Minute}
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		t.Fatalf("handler must not run while the key is held")
		return nil
	})

	probe := fiber.New()
	var fingerprint string
	probe.Post("/resource", func(c *fiber.Ctx) error {
		fingerprint = requestFingerprint(c)
		return nil
	})
	postBody(t, probe, "busy", "{}")

	if err := store.reserve(t.Context(), idempotencyPrefix+":busy", fingerprint); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if status := postBody(t, app, "busy", "{}"); status != fiber.StatusConflict {
		t.Fatalf("expected %d got %d", fiber.StatusConflict, status)
	}
}
