package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// KeyFunc extracts the rate limit subject from a request.
type KeyFunc func(c *fiber.Ctx) string

// ByIP keys a limit on the client address.
func ByIP(c *fiber.Ctx) string {
	return c.IP()
}

// ByIdentity keys a limit on the authenticated email, falling back to the
// client address for anonymous requests.
func ByIdentity(c *fiber.Ctx) string {
	if email, ok := c.Locals(LocalsIdentity).(string); ok && email != "" {
		return email
	}
	return c.IP()
}

// RateLimit allows at most max requests per window for each key, using a
// fixed window counter in Redis. A nil cache disables the limit, and cache
// errors fail open.
func RateLimit(cache *redis.Client, name string, max int, window time.Duration, key KeyFunc, logger *slog.Logger) fiber.Handler {
	if max <= 0 {
		max = 5
	}
	if window <= 0 {
		window = time.Minute
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		ctx := c.UserContext()
		cacheKey := "rl:" + name + ":" + key(c)

		count, err := cache.Incr(ctx, cacheKey).Result()
		if err != nil {
			logger.Warn("rate limit check failed", slog.String("limit", name), slog.Any("error", err))
			return c.Next()
		}
		if count == 1 {
			cache.Expire(ctx, cacheKey, window)
		}

		if count > int64(max) {
			if ttl, err := cache.TTL(ctx, cacheKey).Result(); err == nil && ttl > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(ttl.Round(time.Second)/time.Second)))
			}
			return fiber.NewError(http.StatusTooManyRequests, "Too many requests, try again later")
		}
		return c.Next()
	}
}
