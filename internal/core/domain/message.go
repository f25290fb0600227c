package domain

import (
	"errors"
	"time"
)

var (
	ErrMessageNotFound   = errors.New("message not found")
	ErrRecipientNotFound = errors.New("recipient not found")
	ErrForbidden         = errors.New("access forbidden")
)

// DefaultSubject is stored when a sender leaves the subject empty.
const DefaultSubject = "(no subject)"

// Message is a sender-to-recipient message. SenderID and RecipientID are
// immutable after creation; only the recipient may set ReadAt, and once set
// it is never unset.
type Message struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	SentAt      time.Time  `json:"sent_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// IsRead reports whether the recipient has read the message.
func (m *Message) IsRead() bool {
	return m.ReadAt != nil
}
