package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/triviahub/th-auth-api/internal/ports"
)

// RateLimiter implements a fixed-window login limiter. The first hit in a
// window creates the counter with an expiry; subsequent hits increment it
// until the window lapses.
type RateLimiter struct {
	client   redis.UniversalClient
	prefix   string
	attempts int64
	window   time.Duration
}

var _ ports.RateLimiter = (*RateLimiter)(nil)

// LimiterConfig bundles rate limiter tunables (≤3 params rule).
type LimiterConfig struct {
	// Attempts allowed per window before throttling.
	Attempts int
	// Window is the fixed counting window.
	Window time.Duration
}

// NewRateLimiter creates a limiter with sane fallbacks for zero values.
func NewRateLimiter(client redis.UniversalClient, cfg LimiterConfig) *RateLimiter {
	attempts := int64(cfg.Attempts)
	if attempts <= 0 {
		attempts = 10
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		client:   client,
		prefix:   "ratelimit:login:",
		attempts: attempts,
		window:   window,
	}
}

// Allow records an attempt for the key and reports whether it is still within
// the window budget. Errors are returned to the caller; the service decides
// whether a limiter outage fails open or closed.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.prefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, fmt.Errorf("redis incr: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, fmt.Errorf("redis expire: %w", err)
		}
	}
	return count <= l.attempts, nil
}

// Reset clears the counter for the key, reopening the window immediately.
func (l *RateLimiter) Reset(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}
