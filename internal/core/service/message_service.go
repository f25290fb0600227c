package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mailroom/inbox-system/internal/core/domain"
	"github.com/mailroom/inbox-system/internal/core/ports"
)

// MessageService implements sending and recipient-scoped reading of
// messages. Only a message's recipient may read or mark it; send requires a
// resolvable recipient.
type MessageService struct {
	messages ports.MessageRepository
	users    ports.UserRepository
	logger   zerolog.Logger
}

func NewMessageService(messages ports.MessageRepository, users ports.UserRepository, logger zerolog.Logger) *MessageService {
	return &MessageService{messages: messages, users: users, logger: logger}
}

// Send resolves the recipient by email and persists the message. An empty
// subject is replaced with a placeholder. Unlike login, a missing recipient
// is reported explicitly: sending does not need anti-enumeration protection.
func (s *MessageService) Send(ctx context.Context, input ports.SendMessageInput) (*domain.Message, error) {
	recipient, err := s.users.FindByEmail(ctx, NormalizeEmail(input.RecipientEmail))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrRecipientNotFound
		}
		return nil, err
	}

	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		subject = domain.DefaultSubject
	}

	msg := &domain.Message{
		SenderID:    input.SenderID,
		RecipientID: recipient.ID,
		Subject:     subject,
		Body:        input.Body,
		SentAt:      time.Now().UTC(),
	}

	created, err := s.messages.Create(ctx, msg)
	if err != nil {
		s.logger.Error().Err(err).Str("sender_id", input.SenderID).Msg("failed to store message")
		return nil, err
	}

	s.logger.Info().
		Str("message_id", created.ID).
		Str("sender_id", created.SenderID).
		Str("recipient_id", created.RecipientID).
		Msg("message sent")
	return created, nil
}

// Inbox returns the messages addressed to userID, most recent first.
func (s *MessageService) Inbox(ctx context.Context, userID string) ([]*domain.Message, error) {
	messages, err := s.messages.ListByRecipient(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(messages)
	return messages, nil
}

// Sent returns the messages sent by userID, most recent first.
func (s *MessageService) Sent(ctx context.Context, userID string) ([]*domain.Message, error) {
	messages, err := s.messages.ListBySender(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(messages)
	return messages, nil
}

// sortNewestFirst orders messages by sent_at descending, id descending as the
// tiebreak. Listings promise this order regardless of how the store returns
// them.
func sortNewestFirst(messages []*domain.Message) {
	sort.Slice(messages, func(i, j int) bool {
		if messages[i].SentAt.Equal(messages[j].SentAt) {
			return messages[i].ID > messages[j].ID
		}
		return messages[i].SentAt.After(messages[j].SentAt)
	})
}

// UnreadCount returns how many of userID's received messages are unread.
func (s *MessageService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.messages.CountUnreadByRecipient(ctx, userID)
}

// MarkRead sets read_at on a message iff actingUserID is its recipient.
// First read wins: re-marking an already-read message is a silent no-op that
// returns the stored message unchanged. Anyone else gets ErrForbidden, and
// an unknown id gets ErrMessageNotFound.
func (s *MessageService) MarkRead(ctx context.Context, messageID, actingUserID string) (*domain.Message, error) {
	updated, err := s.messages.MarkRead(ctx, messageID, actingUserID)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, domain.ErrMessageNotFound) {
		return nil, err
	}

	// No unread message matched: either it does not exist, it belongs to
	// someone else, or the recipient already read it.
	msg, ferr := s.messages.FindByID(ctx, messageID)
	if ferr != nil {
		return nil, ferr
	}
	if msg.RecipientID != actingUserID {
		return nil, domain.ErrForbidden
	}
	return msg, nil
}
