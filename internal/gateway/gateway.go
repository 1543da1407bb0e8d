// Package gateway turns one chat turn into exactly one completion call.
//
// The gateway holds no conversation state: every call carries the full
// client-held history, and the outbound sequence is always that history
// followed by the new user message.
package gateway

import (
	"context"
	"errors"
	"log/slog"

	"chat-gateway/internal/models"
)

// ApologyPrefix starts every reply produced for a failed completion.
const ApologyPrefix = "I'm sorry, I encountered an error: "

// Completer is the external completion capability.
type Completer interface {
	Complete(ctx context.Context, messages []models.Message) (string, error)
}

// Gateway forwards chat turns to a Completer.
type Gateway struct {
	completer Completer
}

// New constructs a gateway backed by completer.
func New(completer Completer) (*Gateway, error) {
	if completer == nil {
		return nil, errors.New("completer must not be nil")
	}
	return &Gateway{completer: completer}, nil
}

// Reply returns the provider's reply for message given history. Provider
// failures never escape: they come back as an apology string.
func (g *Gateway) Reply(ctx context.Context, message string, history []models.Message) string {
	sequence := BuildSequence(history, message)

	text, err := g.completer.Complete(ctx, sequence)
	if err != nil {
		slog.Warn("completion failed", "turns", len(sequence), "err", err)
		return Apology(err)
	}
	return text
}

// BuildSequence returns a new slice holding history followed by a user turn for message.
func BuildSequence(history []models.Message, message string) []models.Message {
	sequence := make([]models.Message, 0, len(history)+1)
	sequence = append(sequence, history...)
	return append(sequence, models.Message{Role: models.RoleUser, Content: message})
}

// Apology renders err as the user-facing fallback reply.
func Apology(err error) string {
	return ApologyPrefix + err.Error()
}
