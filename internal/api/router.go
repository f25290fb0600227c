package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/mailroom/inbox-system/docs"
	"github.com/mailroom/inbox-system/internal/api/handler"
	"github.com/mailroom/inbox-system/internal/api/middleware"
	"github.com/mailroom/inbox-system/internal/core/ports"
	"github.com/mailroom/inbox-system/internal/core/service"
	mongodb "github.com/mailroom/inbox-system/internal/infrastructure/db/mongo"
	redisdb "github.com/mailroom/inbox-system/internal/infrastructure/db/redis"
	httphandlers "github.com/mailroom/inbox-system/internal/infrastructure/http/handlers"
	"github.com/mailroom/inbox-system/internal/pkg/config"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// The hasher is passed in (rather than built here) because the caller owns
// its worker pool lifecycle.
func NewRouter(db *mongo.Database, rdb *redis.Client, hasher ports.CredentialHasher, cfg *config.Config, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("inbox"))

	// --- Dependencies ---
	userRepo := mongodb.NewUserRepository(db)
	messageRepo := mongodb.NewMessageRepository(db)
	sessionStore := redisdb.NewSessionStore(rdb)

	lifecycle := service.NewSessionLifecycle(sessionStore, service.TTLPolicy{
		Trusted:   cfg.Sessions.TrustedTTL,
		Untrusted: cfg.Sessions.UntrustedTTL,
	}, log)
	authService := service.NewAuthService(userRepo, lifecycle, hasher, service.LockoutPolicy{
		Threshold: cfg.Auth.LockoutThreshold,
		Window:    cfg.Auth.LockoutWindow,
		Duration:  cfg.Auth.LockoutDuration,
	}, log)
	messageService := service.NewMessageService(messageRepo, userRepo, log)

	csrf := middleware.NewCSRF(cfg.SessionSecret)
	sessionMW := middleware.Session(authService)
	csrfMW := csrf.Middleware()
	throttleMW := middleware.LoginThrottle(
		redisdb.NewLoginThrottle(rdb, cfg.Auth.ThrottleLimit, cfg.Auth.ThrottleWindow), log)

	authHandler := handler.NewAuthHandler(authService, csrf, cfg.IsProduction())
	messageHandler := handler.NewMessageHandler(messageService)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login, throttleMW)
	e.POST("/auth/logout", authHandler.Logout, sessionMW, csrfMW)

	// --- Message routes (all require a live session) ---
	messages := e.Group("/messages", sessionMW)
	messages.GET("", messageHandler.Inbox)
	messages.GET("/sent", messageHandler.Sent)
	messages.POST("", messageHandler.Send, csrfMW)
	messages.POST("/:id/read", messageHandler.MarkRead, csrfMW)

	// --- Health probes (no auth required) ---
	healthHandler := httphandlers.NewHealthHandler()
	healthDepsHandler := httphandlers.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Operational endpoints ---
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
