package router

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chat-gateway/internal/models"
	"chat-gateway/internal/provider"
)

// Router sends message sequences to the provider serving one fixed model.
type Router struct {
	registry     *provider.Registry
	model        string
	systemPrompt string
	maxTokens    int
}

// Option customises a Router.
type Option func(*Router)

// WithSystemPrompt prepends a system turn to every outbound sequence. Empty disables it.
func WithSystemPrompt(prompt string) Option {
	return func(r *Router) {
		r.systemPrompt = strings.TrimSpace(prompt)
	}
}

// WithMaxTokens caps the reply length. Zero leaves the provider default.
func WithMaxTokens(n int) Option {
	return func(r *Router) {
		r.maxTokens = n
	}
}

// New constructs a router for model, which may be a registered id or alias.
func New(registry *provider.Registry, model string, opts ...Option) (*Router, error) {
	if registry == nil {
		return nil, errors.New("registry must not be nil")
	}
	if _, _, err := registry.Resolve(model); err != nil {
		return nil, err
	}

	r := &Router{
		registry: registry,
		model:    model,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Complete calls the provider once and returns the text of its first choice.
func (r *Router) Complete(ctx context.Context, messages []models.Message) (string, error) {
	resp, err := r.Chat(ctx, messages)
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

// Chat routes the sequence to the configured provider and returns the full unified response.
func (r *Router) Chat(ctx context.Context, messages []models.Message) (*models.UnifiedChatResponse, error) {
	modelInfo, providerImpl, err := r.registry.Resolve(r.model)
	if err != nil {
		return nil, err
	}

	req := models.UnifiedChatRequest{
		Model:    modelInfo.ID,
		Messages: r.outbound(messages),
	}
	if r.maxTokens > 0 {
		req.Options = map[string]any{"max_tokens": r.maxTokens}
	}

	resp, err := providerImpl.Chat(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("provider %s chat request: %w", providerImpl.Name(), err)
	}
	if resp == nil {
		return nil, fmt.Errorf("provider %s returned an empty response", providerImpl.Name())
	}
	return resp, nil
}

func (r *Router) outbound(messages []models.Message) []models.Message {
	if r.systemPrompt == "" {
		return messages
	}
	out := make([]models.Message, 0, len(messages)+1)
	out = append(out, models.Message{Role: models.RoleSystem, Content: r.systemPrompt})
	return append(out, messages...)
}
