package infra

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// CacheOpTimeout bounds every Redis round trip. The rate limiter and the
// idempotency store fail open, so a stalled cache must surface as an error
// quickly instead of holding a login or transfer request.
const CacheOpTimeout = 250 * time.Millisecond

// NewRedisClient configures the cache client used for rate limiting and
// idempotency keys and verifies connectivity.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, oops.Code("CONFIG_INVALID").Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("setting", "REDIS_URL").Wrapf(err, "parse redis url")
	}
	opt.DialTimeout = 2 * CacheOpTimeout
	opt.ReadTimeout = CacheOpTimeout
	opt.WriteTimeout = CacheOpTimeout
	opt.MaxRetries = 1

	client := redis.NewClient(opt)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, oops.Code("CACHE_UNAVAILABLE").Wrapf(err, "ping redis")
	}

	return client, nil
}
