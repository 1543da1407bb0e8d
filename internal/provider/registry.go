package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chat-gateway/internal/models"
)

// ErrUnknownModel indicates the requested model is not registered.
var ErrUnknownModel = errors.New("unknown model")

// ErrDuplicateModel indicates an attempt to register the same model twice.
var ErrDuplicateModel = errors.New("model already registered")

// ErrUnsupportedOperation indicates the provider cannot fulfill the requested action.
var ErrUnsupportedOperation = errors.New("unsupported provider operation")

// Provider is an upstream completion service: given an ordered list of
// role-tagged messages it returns one role-tagged reply or fails.
type Provider interface {
	Name() string
	ListModels(ctx context.Context) ([]models.Model, error)
	Chat(ctx context.Context, req models.UnifiedChatRequest) (*models.UnifiedChatResponse, error)
}

type binding struct {
	model    models.Model
	provider Provider
}

// Registry maps model ids and their aliases to the provider serving them.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string]binding
	byName   map[string]Provider
}

// NewRegistry constructs an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[string]binding),
		byName:   make(map[string]Provider),
	}
}

// Register adds the provider and every model it lists. Aliases map an extra
// name onto an already registered model.
func (r *Registry) Register(ctx context.Context, p Provider, aliases map[string]string) error {
	if p == nil {
		return errors.New("provider must not be nil")
	}

	served, err := p.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("list models for provider %q: %w", p.Name(), err)
	}
	if len(served) == 0 {
		return fmt.Errorf("provider %q serves no models", p.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[p.Name()]; exists {
		return fmt.Errorf("provider %q already registered", p.Name())
	}
	r.byName[p.Name()] = p

	for _, model := range served {
		if _, exists := r.bindings[model.ID]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateModel, model.ID)
		}
		r.bindings[model.ID] = binding{model: model, provider: p}
	}

	for alias, target := range aliases {
		if _, exists := r.bindings[alias]; exists {
			return fmt.Errorf("alias %q conflicts with existing model", alias)
		}
		targetBinding, ok := r.bindings[target]
		if !ok {
			return fmt.Errorf("alias %q references unknown model %q", alias, target)
		}
		r.bindings[alias] = targetBinding
	}

	return nil
}

// Resolve returns the concrete model and its provider for a model id or alias.
func (r *Registry) Resolve(modelID string) (models.Model, Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bindings[modelID]
	if !ok {
		return models.Model{}, nil, fmt.Errorf("%w: %s", ErrUnknownModel, modelID)
	}
	return b.model, b.provider, nil
}
