package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mailroom/inbox-system/internal/api/middleware"
	"github.com/mailroom/inbox-system/internal/core/domain"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, email, password, displayName string) (*domain.User, error)
	loginFn    func(ctx context.Context, email, password string, device domain.DeviceClass) (*domain.Session, *domain.User, error)
	logoutFn   func(ctx context.Context, sessionID string) error
	validateFn func(ctx context.Context, sessionID string) (*domain.Session, error)
}

func (s *stubAuthService) Register(ctx context.Context, email, password, displayName string) (*domain.User, error) {
	return s.registerFn(ctx, email, password, displayName)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string, device domain.DeviceClass) (*domain.Session, *domain.User, error) {
	return s.loginFn(ctx, email, password, device)
}

func (s *stubAuthService) Logout(ctx context.Context, sessionID string) error {
	return s.logoutFn(ctx, sessionID)
}

func (s *stubAuthService) ValidateSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.validateFn(ctx, sessionID)
}

func newTestContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpStatus(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	return he.Code
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()

	stub := &stubAuthService{
		registerFn: func(_ context.Context, email, password, displayName string) (*domain.User, error) {
			if email != "alice@x.com" || displayName != "Alice" {
				t.Fatalf("unexpected args: %s %s", email, displayName)
			}
			return &domain.User{ID: "u1", Email: email, DisplayName: displayName, CreatedAt: time.Now().UTC()}, nil
		},
	}
	h := NewAuthHandler(stub, middleware.NewCSRF("test-secret"), false)

	c, rec := newTestContext(e, http.MethodPost, "/auth/register",
		`{"email":"alice@x.com","password":"secret123","display_name":"Alice"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d, expected 201", rec.Code)
	}

	var resp userResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.ID != "u1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("response leaks password material: %s", rec.Body.String())
	}
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	h := NewAuthHandler(&stubAuthService{}, middleware.NewCSRF("test-secret"), false)

	cases := []string{
		`{"email":"not-an-email","password":"secret123","display_name":"Alice"}`,
		`{"email":"alice@x.com","password":"short","display_name":"Alice"}`,
		`{"email":"alice@x.com","password":"secret123","display_name":"A"}`,
		`{"email":"alice@x.com","password":"secret123"}`,
	}
	for _, body := range cases {
		c, _ := newTestContext(e, http.MethodPost, "/auth/register", body)
		err := h.Register(c)
		if got := httpStatus(t, err); got != http.StatusBadRequest {
			t.Fatalf("body %s: status %d, expected 400", body, got)
		}
	}
}

func TestAuthHandler_Register_Duplicate(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	stub := &stubAuthService{
		registerFn: func(context.Context, string, string, string) (*domain.User, error) {
			return nil, domain.ErrUserExists
		},
	}
	h := NewAuthHandler(stub, middleware.NewCSRF("test-secret"), false)

	c, _ := newTestContext(e, http.MethodPost, "/auth/register",
		`{"email":"alice@x.com","password":"secret123","display_name":"Alice"}`)
	err := h.Register(c)
	if got := httpStatus(t, err); got != http.StatusConflict {
		t.Fatalf("status %d, expected 409", got)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()

	expires := time.Now().UTC().Add(30 * time.Minute)
	stub := &stubAuthService{
		loginFn: func(_ context.Context, email, password string, device domain.DeviceClass) (*domain.Session, *domain.User, error) {
			if device != domain.DeviceTrusted {
				t.Fatalf("device class %s, expected trusted", device)
			}
			session := &domain.Session{ID: "sess-1", UserID: "u1", DeviceClass: device, ExpiresAt: expires}
			user := &domain.User{ID: "u1", Email: email, DisplayName: "Alice"}
			return session, user, nil
		},
	}
	h := NewAuthHandler(stub, middleware.NewCSRF("test-secret"), false)

	c, rec := newTestContext(e, http.MethodPost, "/auth/login",
		`{"email":"alice@x.com","password":"secret123","device_class":"trusted"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, expected 200", rec.Code)
	}

	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.CSRFToken == "" {
		t.Fatalf("no csrf token in response")
	}

	cookies := rec.Result().Cookies()
	var sessionCookie *http.Cookie
	for _, ck := range cookies {
		if ck.Name == middleware.SessionCookieName {
			sessionCookie = ck
		}
	}
	if sessionCookie == nil {
		t.Fatalf("session cookie not set")
	}
	if sessionCookie.Value != "sess-1" {
		t.Fatalf("cookie value %s, expected session id", sessionCookie.Value)
	}
	if !sessionCookie.HttpOnly {
		t.Fatalf("session cookie not HttpOnly")
	}
	if sessionCookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("session cookie SameSite %v, expected Strict", sessionCookie.SameSite)
	}
}

func TestAuthHandler_Login_Failures(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()

	cases := []struct {
		name     string
		loginErr error
		want     int
	}{
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{"locked account", domain.ErrAccountLocked, http.StatusLocked},
	}
	for _, tc := range cases {
		stub := &stubAuthService{
			loginFn: func(context.Context, string, string, domain.DeviceClass) (*domain.Session, *domain.User, error) {
				return nil, nil, tc.loginErr
			},
		}
		h := NewAuthHandler(stub, middleware.NewCSRF("test-secret"), false)

		c, rec := newTestContext(e, http.MethodPost, "/auth/login",
			`{"email":"alice@x.com","password":"wrong-pw1"}`)
		err := h.Login(c)
		if got := httpStatus(t, err); got != tc.want {
			t.Fatalf("%s: status %d, expected %d", tc.name, got, tc.want)
		}
		if len(rec.Result().Cookies()) != 0 {
			t.Fatalf("%s: cookie set on failed login", tc.name)
		}
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()

	var destroyed string
	stub := &stubAuthService{
		logoutFn: func(_ context.Context, sessionID string) error {
			destroyed = sessionID
			return nil
		},
	}
	h := NewAuthHandler(stub, middleware.NewCSRF("test-secret"), false)

	c, rec := newTestContext(e, http.MethodPost, "/auth/logout", "")
	c.Set("user_id", "u1")
	c.Set("session_id", "sess-1")
	if err := h.Logout(c); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if destroyed != "sess-1" {
		t.Fatalf("destroyed %q, expected sess-1", destroyed)
	}

	var cleared *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.SessionCookieName {
			cleared = ck
		}
	}
	if cleared == nil || cleared.Value != "" || cleared.MaxAge != -1 {
		t.Fatalf("session cookie not cleared: %+v", cleared)
	}
}

func TestAuthHandler_Logout_MissingIdentity(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	h := NewAuthHandler(&stubAuthService{}, middleware.NewCSRF("test-secret"), false)

	c, _ := newTestContext(e, http.MethodPost, "/auth/logout", "")
	err := h.Logout(c)
	if got := httpStatus(t, err); got != http.StatusUnauthorized {
		t.Fatalf("status %d, expected 401", got)
	}
}
