package middleware

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// CSRFHeader is the request header carrying the CSRF token on
// state-changing requests.
const CSRFHeader = "X-CSRF-Token"

// CSRF issues and validates CSRF tokens bound to a session. A token is an
// HS256-signed JWT whose "sid" claim must match the session id resolved by
// the Session middleware, so a token stolen for one session is useless for
// another, and logging out invalidates all tokens implicitly.
type CSRF struct {
	secret []byte
}

func NewCSRF(secret string) *CSRF {
	return &CSRF{secret: []byte(secret)}
}

// Issue returns a token bound to sessionID, expiring at expiresAt (the
// session's own deadline, so token and session die together).
func (cs *CSRF) Issue(sessionID string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sid": sessionID,
		"exp": expiresAt.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(cs.secret)
}

// Middleware rejects state-changing requests without a valid token for the
// current session. It must run after the Session middleware.
func (cs *CSRF) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.Request().Header.Get(CSRFHeader)
			if raw == "" {
				return echo.NewHTTPError(http.StatusForbidden, "missing csrf token")
			}

			claims := jwt.MapClaims{}
			tkn, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return cs.secret, nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusForbidden, "invalid csrf token")
			}

			sessionID, _ := c.Get("session_id").(string)
			if sid, _ := claims["sid"].(string); sessionID == "" || sid != sessionID {
				return echo.NewHTTPError(http.StatusForbidden, "csrf token not bound to session")
			}

			return next(c)
		}
	}
}
