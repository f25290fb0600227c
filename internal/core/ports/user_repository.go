package ports

import (
	"context"
	"time"

	"github.com/mailroom/inbox-system/internal/core/domain"
)

// UserRepository defines persistence operations for the user directory.
// Implementations must enforce email uniqueness at write time and perform
// the failure/success bookkeeping as single atomic document updates.
type UserRepository interface {
	// Create stores a new user. Returns domain.ErrUserExists when the
	// normalized email is already taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)

	// FindByEmail looks up a user by normalized email.
	// Returns domain.ErrUserNotFound on miss.
	FindByEmail(ctx context.Context, email string) (*domain.User, error)

	// FindByID looks up a user by id. Returns domain.ErrUserNotFound on miss.
	FindByID(ctx context.Context, id string) (*domain.User, error)

	// RecordFailure advances the rolling-window failure counter in one
	// atomic document write: the count restarts at 1 when the previous
	// failure is older than window, last_failed_at moves to now, and
	// locked_until is set to now+lockFor once the new count reaches
	// threshold. Returns the updated count, so concurrent failures each
	// observe their own increment.
	RecordFailure(ctx context.Context, id string, now time.Time, window time.Duration, threshold int, lockFor time.Duration) (int, error)

	// RecordSuccess resets the failure counter and stamps last_login_at.
	RecordSuccess(ctx context.Context, id string, lastLoginAt time.Time) error
}
