package history

import (
	"context"
	"errors"

	"chat-gateway/internal/models"
)

// FallbackReply is recorded as the assistant turn when the server could not be reached.
const FallbackReply = "I'm sorry, I encountered an error. Please try again later."

// Sender delivers one chat turn to the gateway.
type Sender interface {
	Chat(ctx context.Context, message string, history []models.Message) (string, error)
}

// Session runs chat turns against a Sender and records them in its History.
type Session struct {
	history *History
	sender  Sender
}

// NewSession starts a session with an empty history.
func NewSession(sender Sender) *Session {
	return &Session{history: New(), sender: sender}
}

// rejection is implemented by errors that report the server refused the
// request itself, such as a history over the configured limit.
type rejection interface {
	Rejected() bool
}

// Send runs one turn. The request carries the history as it was before this
// turn; the gateway appends message itself. The user turn and the reply are
// both recorded, even when delivery fails, in which case the reply is
// FallbackReply and the error is returned alongside it. A turn the server
// rejected is not recorded at all, so the history does not keep growing past
// a limit the server enforces.
func (s *Session) Send(ctx context.Context, message string) (string, error) {
	prior := s.history.Snapshot()

	reply, err := s.sender.Chat(ctx, message, prior)
	if err != nil {
		var r rejection
		if errors.As(err, &r) && r.Rejected() {
			return FallbackReply, err
		}
		reply = FallbackReply
	}
	s.history.Append(models.RoleUser, message)
	s.history.Append(models.RoleAssistant, reply)
	return reply, err
}

// History exposes the turns recorded so far.
func (s *Session) History() []models.Message {
	return s.history.Snapshot()
}

// Reset forgets the conversation.
func (s *Session) Reset() {
	s.history.Reset()
}
