package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mailroom/inbox-system/internal/core/domain"
	"github.com/mailroom/inbox-system/internal/core/ports"
)

// SessionCookieName is the cookie carrying the opaque session identifier.
// The cookie never contains user data, only the id.
const SessionCookieName = "inbox_session"

// Session validates the session cookie and injects the acting identity into
// the echo context. Missing, unknown and expired sessions are all rejected
// with the same 401.
func Session(auth ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			session, err := auth.ValidateSession(c.Request().Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, domain.ErrSessionNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "session invalid or expired")
				}
				return err
			}

			c.Set("user_id", session.UserID)
			c.Set("session_id", session.ID)
			c.Set("device_class", string(session.DeviceClass))

			return next(c)
		}
	}
}
