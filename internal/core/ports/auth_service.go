package ports

import (
	"context"

	"github.com/mailroom/inbox-system/internal/core/domain"
)

// AuthService answers "is this login valid, and for how long".
type AuthService interface {
	Register(ctx context.Context, email, password, displayName string) (*domain.User, error)
	Login(ctx context.Context, email, password string, device domain.DeviceClass) (*domain.Session, *domain.User, error)
	Logout(ctx context.Context, sessionID string) error
	ValidateSession(ctx context.Context, sessionID string) (*domain.Session, error)
}

// SessionLifecycle mints, validates and destroys sessions with
// device-class-dependent expiry.
type SessionLifecycle interface {
	Create(ctx context.Context, userID string, device domain.DeviceClass) (*domain.Session, error)
	Validate(ctx context.Context, id string) (*domain.Session, error)
	Destroy(ctx context.Context, id string) error
}
