// Package history keeps the client-held record of a conversation.
package history

import (
	"sync"

	"chat-gateway/internal/models"
)

// History is an append-only, chronological list of turns owned by one client session.
type History struct {
	mu    sync.RWMutex
	turns []models.Message
}

// New returns an empty history.
func New() *History {
	return &History{}
}

// Append adds a turn at the end.
func (h *History) Append(role, content string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns, models.Message{Role: role, Content: content})
}

// Snapshot returns a copy of the turns so far; later appends do not show up in it.
func (h *History) Snapshot() []models.Message {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]models.Message, len(h.turns))
	copy(out, h.turns)
	return out
}

// Len reports the number of turns.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns)
}

// Reset discards every turn, starting a new conversation.
func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}
