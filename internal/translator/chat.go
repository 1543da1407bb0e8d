package translator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"chat-gateway/internal/models"
)

var (
	// ErrInvalidRequest wraps every validation failure of a chat request.
	ErrInvalidRequest = errors.New("invalid chat request")

	errMissingMessage = fmt.Errorf("%w: message is required", ErrInvalidRequest)
	errBlankMessage   = fmt.Errorf("%w: message must not be blank", ErrInvalidRequest)
	errInvalidRole    = fmt.Errorf("%w: invalid role", ErrInvalidRequest)
)

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string        `json:"message"`
	History []ChatMessage `json:"history"`
}

// ChatMessage is one history turn as sent by the browser.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	Response string `json:"response"`
}

// UnmarshalJSON decodes and validates the request. A missing or null history is an empty one.
func (r *ChatRequest) UnmarshalJSON(data []byte) error {
	type alias struct {
		Message *string       `json:"message"`
		History []ChatMessage `json:"history"`
	}

	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode chat request: %w", err)
	}

	if raw.Message == nil {
		return errMissingMessage
	}

	r.Message = *raw.Message
	r.History = raw.History
	if r.History == nil {
		r.History = []ChatMessage{}
	}

	return r.validate()
}

// validate rejects blank messages; the message itself is forwarded untrimmed.
func (r *ChatRequest) validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return errBlankMessage
	}
	for i, msg := range r.History {
		if !models.ValidRole(msg.Role) {
			return fmt.Errorf("history[%d]: %w %q", i, errInvalidRole, msg.Role)
		}
	}
	return nil
}

// HistoryMessages converts the wire history into domain messages, preserving order.
func (r ChatRequest) HistoryMessages() []models.Message {
	msgs := make([]models.Message, 0, len(r.History))
	for _, m := range r.History {
		msgs = append(msgs, models.Message{Role: m.Role, Content: m.Content})
	}
	return msgs
}

// FromMessages converts domain messages into wire history turns.
func FromMessages(msgs []models.Message) []ChatMessage {
	out := make([]ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, ChatMessage{Role: m.Role, Content: m.Content})
	}
	return out
}
