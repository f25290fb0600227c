package ports

import (
	"context"

	"github.com/mailroom/inbox-system/internal/core/domain"
)

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	// Create persists a new message and returns it with its assigned id.
	Create(ctx context.Context, msg *domain.Message) (*domain.Message, error)

	// ListByRecipient returns all messages addressed to userID,
	// ordered by sent_at descending. The ordering is contractual.
	ListByRecipient(ctx context.Context, userID string) ([]*domain.Message, error)

	// ListBySender returns all messages sent by userID,
	// ordered by sent_at descending.
	ListBySender(ctx context.Context, userID string) ([]*domain.Message, error)

	// CountUnreadByRecipient returns the number of unread messages for userID.
	CountUnreadByRecipient(ctx context.Context, userID string) (int64, error)

	// FindByID returns the message with the given id.
	// Returns domain.ErrMessageNotFound on miss.
	FindByID(ctx context.Context, id string) (*domain.Message, error)

	// MarkRead atomically sets read_at on the message iff it is addressed to
	// recipientID and still unread. Returns the updated message, or
	// domain.ErrMessageNotFound when no such unread message exists (the
	// caller disambiguates already-read from forbidden from missing).
	MarkRead(ctx context.Context, id, recipientID string) (*domain.Message, error)
}
