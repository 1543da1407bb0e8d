package factory

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"chat-gateway/internal/config"
	"chat-gateway/internal/provider"
	claudeProvider "chat-gateway/internal/provider/claude"
	openaiProvider "chat-gateway/internal/provider/openai"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// RegisterConfiguredProvider builds the provider selected by provider.kind and stores it in the registry.
func RegisterConfiguredProvider(ctx context.Context, cfg config.Config, registry *provider.Registry) error {
	if registry == nil {
		return errors.New("registry must not be nil")
	}

	p, err := New(cfg.Provider, newHTTPClient(cfg.Provider.Timeout))
	if err != nil {
		return err
	}
	if err := registry.Register(ctx, p, cfg.Provider.Aliases); err != nil {
		return fmt.Errorf("register %s provider: %w", cfg.Provider.Kind, err)
	}
	return nil
}

// New constructs the provider adapter for cfg.Kind.
func New(cfg config.ProviderConfig, client *http.Client) (provider.Provider, error) {
	switch cfg.Kind {
	case config.KindOpenAI:
		p, err := openaiProvider.New(config.KindOpenAI, cfg, client)
		if err != nil {
			return nil, fmt.Errorf("initialise openai provider: %w", err)
		}
		return p, nil
	case config.KindClaude:
		p, err := claudeProvider.New(config.KindClaude, cfg, client)
		if err != nil {
			return nil, fmt.Errorf("initialise claude provider: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("provider kind %q: %w", cfg.Kind, provider.ErrUnsupportedOperation)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
