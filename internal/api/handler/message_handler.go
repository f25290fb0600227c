package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mailroom/inbox-system/internal/api/metrics"
	"github.com/mailroom/inbox-system/internal/core/domain"
	"github.com/mailroom/inbox-system/internal/core/ports"
)

// MessageHandler handles sending and reading messages. Every operation is
// scoped to the identity resolved by the Session middleware.
type MessageHandler struct {
	service ports.MessageService
}

func NewMessageHandler(service ports.MessageService) *MessageHandler {
	return &MessageHandler{service: service}
}

type sendMessageRequest struct {
	Recipient string `json:"recipient" validate:"required,email"`
	Subject   string `json:"subject"   validate:"omitempty,max=200"`
	Body      string `json:"body"      validate:"required,max=10000"`
}

type messageResponse struct {
	ID          string     `json:"id"`
	SenderID    string     `json:"sender_id"`
	RecipientID string     `json:"recipient_id"`
	Subject     string     `json:"subject"`
	Body        string     `json:"body"`
	SentAt      time.Time  `json:"sent_at"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

type inboxResponse struct {
	Messages    []messageResponse `json:"messages"`
	UnreadCount int64             `json:"unread_count"`
}

type sentResponse struct {
	Messages []messageResponse `json:"messages"`
}

func toMessageResponse(m *domain.Message) messageResponse {
	return messageResponse{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Subject:     m.Subject,
		Body:        m.Body,
		SentAt:      m.SentAt,
		ReadAt:      m.ReadAt,
	}
}

func toMessageResponses(msgs []*domain.Message) []messageResponse {
	out := make([]messageResponse, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageResponse(m))
	}
	return out
}

// Inbox lists the acting user's received messages, most recent first.
//
// @Summary      List received messages
// @Tags         messages
// @Produce      json
// @Success      200  {object}  inboxResponse
// @Failure      401  {object}  errorResponse
// @Router       /messages [get]
func (h *MessageHandler) Inbox(c echo.Context) error {
	userID, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	messages, err := h.service.Inbox(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	unread, err := h.service.UnreadCount(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, inboxResponse{
		Messages:    toMessageResponses(messages),
		UnreadCount: unread,
	})
}

// Sent lists the acting user's sent messages, most recent first.
//
// @Summary      List sent messages
// @Tags         messages
// @Produce      json
// @Success      200  {object}  sentResponse
// @Failure      401  {object}  errorResponse
// @Router       /messages/sent [get]
func (h *MessageHandler) Sent(c echo.Context) error {
	userID, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	messages, err := h.service.Sent(c.Request().Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, sentResponse{Messages: toMessageResponses(messages)})
}

// Send stores a new message for a resolvable recipient.
//
// @Summary      Send a message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Param        body  body      sendMessageRequest  true  "Message"
// @Success      201   {object}  messageResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /messages [post]
func (h *MessageHandler) Send(c echo.Context) error {
	userID, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	msg, err := h.service.Send(c.Request().Context(), ports.SendMessageInput{
		SenderID:       userID,
		RecipientEmail: req.Recipient,
		Subject:        req.Subject,
		Body:           req.Body,
	})
	if err != nil {
		if errors.Is(err, domain.ErrRecipientNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "recipient not found")
		}
		return err
	}

	metrics.MessagesSentTotal.Inc()
	return c.JSON(http.StatusCreated, toMessageResponse(msg))
}

// MarkRead marks a received message as read. Re-marking an already-read
// message returns 200 with the unchanged read_at (first-read-wins).
//
// @Summary      Mark a message read
// @Tags         messages
// @Produce      json
// @Param        id   path      string  true  "Message id"
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /messages/{id}/read [post]
func (h *MessageHandler) MarkRead(c echo.Context) error {
	userID, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	msg, err := h.service.MarkRead(c.Request().Context(), c.Param("id"), userID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrMessageNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "message not found")
		case errors.Is(err, domain.ErrForbidden):
			return echo.NewHTTPError(http.StatusForbidden, "access forbidden")
		}
		return err
	}

	metrics.MessagesReadTotal.Inc()
	return c.JSON(http.StatusOK, toMessageResponse(msg))
}
