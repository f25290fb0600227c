package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mailroom/inbox-system/internal/core/domain"
	"github.com/mailroom/inbox-system/internal/core/ports"
)

type stubMessageService struct {
	sendFn        func(ctx context.Context, input ports.SendMessageInput) (*domain.Message, error)
	inboxFn       func(ctx context.Context, userID string) ([]*domain.Message, error)
	sentFn        func(ctx context.Context, userID string) ([]*domain.Message, error)
	unreadCountFn func(ctx context.Context, userID string) (int64, error)
	markReadFn    func(ctx context.Context, messageID, actingUserID string) (*domain.Message, error)
}

func (s *stubMessageService) Send(ctx context.Context, input ports.SendMessageInput) (*domain.Message, error) {
	return s.sendFn(ctx, input)
}

func (s *stubMessageService) Inbox(ctx context.Context, userID string) ([]*domain.Message, error) {
	return s.inboxFn(ctx, userID)
}

func (s *stubMessageService) Sent(ctx context.Context, userID string) ([]*domain.Message, error) {
	return s.sentFn(ctx, userID)
}

func (s *stubMessageService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.unreadCountFn(ctx, userID)
}

func (s *stubMessageService) MarkRead(ctx context.Context, messageID, actingUserID string) (*domain.Message, error) {
	return s.markReadFn(ctx, messageID, actingUserID)
}

func authedContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := newTestContext(e, method, target, body)
	c.Set("user_id", "u1")
	c.Set("session_id", "sess-1")
	return c, rec
}

func TestMessageHandler_Inbox(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()

	now := time.Now().UTC()
	stub := &stubMessageService{
		inboxFn: func(_ context.Context, userID string) ([]*domain.Message, error) {
			if userID != "u1" {
				t.Fatalf("listing scoped to %s, expected u1", userID)
			}
			return []*domain.Message{
				{ID: "m2", SenderID: "u2", RecipientID: "u1", Subject: "newer", SentAt: now},
				{ID: "m1", SenderID: "u2", RecipientID: "u1", Subject: "older", SentAt: now.Add(-time.Hour)},
			}, nil
		},
		unreadCountFn: func(context.Context, string) (int64, error) { return 2, nil },
	}
	h := NewMessageHandler(stub)

	c, rec := authedContext(e, http.MethodGet, "/messages", "")
	if err := h.Inbox(c); err != nil {
		t.Fatalf("Inbox returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, expected 200", rec.Code)
	}

	var resp inboxResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Messages) != 2 || resp.Messages[0].ID != "m2" {
		t.Fatalf("unexpected messages: %+v", resp.Messages)
	}
	if resp.UnreadCount != 2 {
		t.Fatalf("unread count %d, expected 2", resp.UnreadCount)
	}
}

func TestMessageHandler_Inbox_Unauthenticated(t *testing.T) {
	e := echo.New()
	h := NewMessageHandler(&stubMessageService{})

	c, _ := newTestContext(e, http.MethodGet, "/messages", "")
	err := h.Inbox(c)
	if got := httpStatus(t, err); got != http.StatusUnauthorized {
		t.Fatalf("status %d, expected 401", got)
	}
}

func TestMessageHandler_Sent_Empty(t *testing.T) {
	e := echo.New()
	stub := &stubMessageService{
		sentFn: func(context.Context, string) ([]*domain.Message, error) { return nil, nil },
	}
	h := NewMessageHandler(stub)

	c, rec := authedContext(e, http.MethodGet, "/messages/sent", "")
	if err := h.Sent(c); err != nil {
		t.Fatalf("Sent returned error: %v", err)
	}

	var resp sentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	// Empty listing serializes as [], not null.
	if resp.Messages == nil {
		t.Fatalf("messages is null, expected empty array")
	}
}

func TestMessageHandler_Send(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()

	stub := &stubMessageService{
		sendFn: func(_ context.Context, input ports.SendMessageInput) (*domain.Message, error) {
			if input.SenderID != "u1" {
				t.Fatalf("sender %s, expected acting user u1", input.SenderID)
			}
			return &domain.Message{
				ID:          "m1",
				SenderID:    input.SenderID,
				RecipientID: "u2",
				Subject:     input.Subject,
				Body:        input.Body,
				SentAt:      time.Now().UTC(),
			}, nil
		},
	}
	h := NewMessageHandler(stub)

	c, rec := authedContext(e, http.MethodPost, "/messages",
		`{"recipient":"bob@x.com","subject":"hi","body":"hello"}`)
	if err := h.Send(c); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status %d, expected 201", rec.Code)
	}
}

func TestMessageHandler_Send_Validation(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	h := NewMessageHandler(&stubMessageService{})

	cases := []string{
		`{"subject":"hi","body":"hello"}`,
		`{"recipient":"not-an-email","body":"hello"}`,
		`{"recipient":"bob@x.com","subject":"hi"}`,
	}
	for _, body := range cases {
		c, _ := authedContext(e, http.MethodPost, "/messages", body)
		err := h.Send(c)
		if got := httpStatus(t, err); got != http.StatusBadRequest {
			t.Fatalf("body %s: status %d, expected 400", body, got)
		}
	}
}

func TestMessageHandler_Send_UnknownRecipient(t *testing.T) {
	e := echo.New()
	e.Validator = NewValidator()
	stub := &stubMessageService{
		sendFn: func(context.Context, ports.SendMessageInput) (*domain.Message, error) {
			return nil, domain.ErrRecipientNotFound
		},
	}
	h := NewMessageHandler(stub)

	c, _ := authedContext(e, http.MethodPost, "/messages",
		`{"recipient":"ghost@x.com","body":"hello"}`)
	err := h.Send(c)
	if got := httpStatus(t, err); got != http.StatusNotFound {
		t.Fatalf("status %d, expected 404", got)
	}
}

func TestMessageHandler_MarkRead(t *testing.T) {
	e := echo.New()

	now := time.Now().UTC()
	stub := &stubMessageService{
		markReadFn: func(_ context.Context, messageID, actingUserID string) (*domain.Message, error) {
			if messageID != "m1" || actingUserID != "u1" {
				t.Fatalf("unexpected args: %s %s", messageID, actingUserID)
			}
			return &domain.Message{ID: "m1", RecipientID: "u1", ReadAt: &now}, nil
		},
	}
	h := NewMessageHandler(stub)

	c, rec := authedContext(e, http.MethodPost, "/messages/m1/read", "")
	c.SetParamNames("id")
	c.SetParamValues("m1")
	if err := h.MarkRead(c); err != nil {
		t.Fatalf("MarkRead returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, expected 200", rec.Code)
	}

	var resp messageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.ReadAt == nil {
		t.Fatalf("read_at missing in response")
	}
}

func TestMessageHandler_MarkRead_Errors(t *testing.T) {
	e := echo.New()

	cases := []struct {
		name    string
		markErr error
		want    int
	}{
		{"missing message", domain.ErrMessageNotFound, http.StatusNotFound},
		{"not the recipient", domain.ErrForbidden, http.StatusForbidden},
	}
	for _, tc := range cases {
		stub := &stubMessageService{
			markReadFn: func(context.Context, string, string) (*domain.Message, error) {
				return nil, tc.markErr
			},
		}
		h := NewMessageHandler(stub)

		c, _ := authedContext(e, http.MethodPost, "/messages/m1/read", "")
		c.SetParamNames("id")
		c.SetParamValues("m1")
		err := h.MarkRead(c)
		if got := httpStatus(t, err); got != tc.want {
			t.Fatalf("%s: status %d, expected %d", tc.name, got, tc.want)
		}
	}
}
