package ports

import (
	"context"

	"github.com/mailroom/inbox-system/internal/core/domain"
)

// SendMessageInput carries the fields of a send request after validation.
type SendMessageInput struct {
	SenderID       string
	RecipientEmail string
	Subject        string
	Body           string
}

// MessageService exposes ownership-scoped message operations. Every query
// and mutation is scoped to the acting user's identity.
type MessageService interface {
	Send(ctx context.Context, input SendMessageInput) (*domain.Message, error)
	Inbox(ctx context.Context, userID string) ([]*domain.Message, error)
	Sent(ctx context.Context, userID string) ([]*domain.Message, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, messageID, actingUserID string) (*domain.Message, error)
}
