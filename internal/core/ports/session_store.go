package ports

import (
	"context"

	"github.com/mailroom/inbox-system/internal/core/domain"
)

// SessionStore is the durable, shared backing store for sessions so that
// identity survives process restarts.
type SessionStore interface {
	// Save persists the session. The store must stop returning it once the
	// session's TTL has elapsed.
	Save(ctx context.Context, session *domain.Session) error

	// Get returns the session for id. Returns domain.ErrSessionNotFound for
	// unknown or expired ids.
	Get(ctx context.Context, id string) (*domain.Session, error)

	// Delete removes the session. Deleting an absent session is a no-op.
	Delete(ctx context.Context, id string) error
}
