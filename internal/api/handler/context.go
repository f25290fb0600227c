package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxIdentity extracts the acting identity injected by the Session middleware
// and performs a fast-fail check before any service call: both ids must be
// present (presence proves the middleware ran). A route reaching a handler
// without them is a wiring bug, surfaced as 401 rather than a panic.
func ctxIdentity(c echo.Context) (userID, sessionID string, err error) {
	userID, _ = c.Get("user_id").(string)
	sessionID, _ = c.Get("session_id").(string)
	if userID == "" || sessionID == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return userID, sessionID, nil
}
