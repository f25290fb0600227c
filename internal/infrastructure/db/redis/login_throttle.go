package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultThrottleLimit  = 10
	defaultThrottleWindow = time.Minute
)

// LoginThrottle is a fixed-window rate limiter for login attempts, backed by
// Redis so the limit holds across instances. It is a pre-condition enforced
// before the auth service is invoked, not part of credential verification.
// Key format: throttle:login:<caller key>
type LoginThrottle struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewLoginThrottle creates a LoginThrottle allowing limit attempts per window.
// Non-positive values fall back to defaults.
func NewLoginThrottle(client *redis.Client, limit int, window time.Duration) *LoginThrottle {
	if limit <= 0 {
		limit = defaultThrottleLimit
	}
	if window <= 0 {
		window = defaultThrottleWindow
	}
	return &LoginThrottle{client: client, limit: int64(limit), window: window}
}

// Allow records one attempt for the caller key and reports whether it is
// still within the limit for the current window.
func (t *LoginThrottle) Allow(ctx context.Context, callerKey string) (bool, error) {
	key := t.key(callerKey)

	n, err := t.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("login throttle: incr: %w", err)
	}
	if n == 1 {
		if err := t.client.Expire(ctx, key, t.window).Err(); err != nil {
			return false, fmt.Errorf("login throttle: expire: %w", err)
		}
	}
	return n <= t.limit, nil
}

func (t *LoginThrottle) key(callerKey string) string {
	return fmt.Sprintf("throttle:login:%s", callerKey)
}
