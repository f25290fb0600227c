package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/mailroom/inbox-system/internal/api/metrics"
)

// AttemptLimiter decides whether one more attempt for key is allowed.
// Implemented by the Redis login throttle.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// LoginThrottle refuses to process a login attempt once the caller's IP
// exhausts its budget. It runs before the auth service is invoked; the
// credential check never happens for throttled requests. On limiter outage
// the request is let through: the account lockout still caps per-account
// brute force.
func LoginThrottle(limiter AttemptLimiter, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, err := limiter.Allow(c.Request().Context(), c.RealIP())
			if err != nil {
				log.Warn().Err(err).Msg("login throttle unavailable, allowing request")
				return next(c)
			}
			if !ok {
				metrics.LoginsTotal.WithLabelValues("throttled").Inc()
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts, try again later")
			}
			return next(c)
		}
	}
}
