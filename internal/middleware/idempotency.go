package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	idempotencyPrefix    = "idempotency:v1:"
	maxIdempotencyKeyLen = 255
	cacheCallTimeout     = 2 * time.Second
)

var errKeyPending = errors.New("idempotency key pending")

// replayRecord is what a key maps to in Redis. Status is zero while the
// first request holding the key is still running.
type replayRecord struct {
	Fingerprint string `json:"fingerprint"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	Body        string `json:"body,omitempty"`
}

type replayStore struct {
	cache *redis.Client
	ttl   time.Duration
}

func (s replayStore) lookup(ctx context.Context, key string) (replayRecord, bool, error) {
	raw, err := s.cache.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return replayRecord{}, false, nil
	}
	if err != nil {
		return replayRecord{}, false, err
	}
	var rec replayRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return replayRecord{}, false, err
	}
	return rec, true, nil
}

// reserve claims key for a new request. It returns errKeyPending when another
// request claimed it first.
func (s replayStore) reserve(ctx context.Context, key, fingerprint string) error {
	payload, err := json.Marshal(replayRecord{Fingerprint: fingerprint})
	if err != nil {
		return err
	}
	ok, err := s.cache.SetNX(ctx, key, payload, s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return errKeyPending
	}
	return nil
}

func (s replayStore) save(ctx context.Context, key string, rec replayRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, payload, s.ttl).Err()
}

func (s replayStore) release(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), cacheCallTimeout)
	defer cancel()
	s.cache.Del(ctx, key)
}

func requestFingerprint(c *fiber.Ctx) string {
	sum := sha256.New()
	sum.Write([]byte(c.Method()))
	sum.Write([]byte{0})
	sum.Write([]byte(c.Path()))
	sum.Write([]byte{0})
	sum.Write(c.Body())
	return hex.EncodeToString(sum.Sum(nil))
}

// Idempotency replays the stored response for a repeated Idempotency-Key so
// a retried transfer is not executed twice. Requests without the header, and
// all requests when cache is nil, pass straight through. Keys are scoped to
// the authenticated identity, and reusing a key with a different body is
// rejected.
//
// Only successful responses are stored. A rejected transfer releases its key
// so the client can correct the request and retry with the same key.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	if cache == nil {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	store := replayStore{cache: cache, ttl: ttl}

	return func(c *fiber.Ctx) error {
		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return c.Next()
		}
		if len(key) > maxIdempotencyKeyLen {
			return fiber.NewError(fiber.StatusBadRequest, "Idempotency-Key is too long")
		}

		owner, _ := c.Locals(LocalsIdentity).(string)
		cacheKey := idempotencyPrefix + owner + ":" + key
		fingerprint := requestFingerprint(c)
		log := logger.With(slog.String("idempotency_key", key))

		ctx, cancel := context.WithTimeout(c.UserContext(), cacheCallTimeout)
		defer cancel()

		rec, found, err := store.lookup(ctx, cacheKey)
		if err != nil {
			log.Error("idempotency lookup failed", slog.Any("error", err))
			return fiber.NewError(fiber.StatusServiceUnavailable, "Service temporarily unavailable")
		}
		if found {
			return replay(c, rec, fingerprint)
		}

		if err := store.reserve(ctx, cacheKey, fingerprint); err != nil {
			if errors.Is(err, errKeyPending) {
				return fiber.NewError(fiber.StatusConflict, "A request with this Idempotency-Key is already in progress")
			}
			log.Error("idempotency reservation failed", slog.Any("error", err))
			return fiber.NewError(fiber.StatusServiceUnavailable, "Service temporarily unavailable")
		}

		if err := c.Next(); err != nil {
			store.release(cacheKey)
			return err
		}
		status := c.Response().StatusCode()
		if status >= fiber.StatusBadRequest {
			store.release(cacheKey)
			return nil
		}

		// The transfer has committed; failing to persist the replay record
		// must not turn it into an error response.
		saveCtx, saveCancel := context.WithTimeout(context.Background(), cacheCallTimeout)
		defer saveCancel()
		err = store.save(saveCtx, cacheKey, replayRecord{
			Fingerprint: fingerprint,
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        string(c.Response().Body()),
		})
		if err != nil {
			log.Error("failed to persist idempotent response", slog.Any("error", err))
			store.release(cacheKey)
		}
		return nil
	}
}

func replay(c *fiber.Ctx, rec replayRecord, fingerprint string) error {
	if rec.Fingerprint != fingerprint {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "Idempotency-Key was already used for a different request")
	}
	if rec.Status == 0 {
		return fiber.NewError(fiber.StatusConflict, "A request with this Idempotency-Key is already in progress")
	}
	if rec.ContentType != "" {
		c.Set(fiber.HeaderContentType, rec.ContentType)
	}
	c.Set("Idempotent-Replayed", "true")
	return c.Status(rec.Status).SendString(rec.Body)
}
