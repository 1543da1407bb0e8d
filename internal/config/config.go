package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	KindOpenAI = "openai"
	KindClaude = "claude"

	defaultPort           = 8080
	defaultOpenAIBaseURL  = "https://api.openai.com/v1"
	defaultClaudeBaseURL  = "https://api.anthropic.com"
	defaultOpenAIModel    = "gpt-4"
	defaultOpenAIKeyEnv   = "OPENAI_API_KEY"
	defaultClaudeKeyEnv   = "ANTHROPIC_API_KEY"
	defaultClaudeMaxToken = 1024
	defaultTimeout        = 60 * time.Second
)

// ErrMissingAPIKey is returned when the provider credential is not present in the environment.
var ErrMissingAPIKey = errors.New("provider api key is not set")

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Chat     ChatConfig     `yaml:"chat"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ProviderConfig selects and authenticates the upstream completion provider.
type ProviderConfig struct {
	Kind      string            `yaml:"kind"`
	BaseURL   string            `yaml:"base_url"`
	Model     string            `yaml:"model"`
	Models    []string          `yaml:"models"`
	Aliases   map[string]string `yaml:"aliases"`
	Headers   Headers           `yaml:"headers"`
	APIKeyEnv string            `yaml:"api_key_env"`
	Timeout   time.Duration     `yaml:"timeout"`
	MaxTokens int               `yaml:"max_tokens"`

	// APIKey is only ever populated from the environment.
	APIKey string `yaml:"-"`
}

// Headers contains additional HTTP headers to send with a provider request.
type Headers map[string]string

// ChatConfig bounds what a single chat turn may carry.
type ChatConfig struct {
	// MaxHistory rejects requests whose history exceeds this many turns. Zero disables the bound.
	MaxHistory   int    `yaml:"max_history"`
	SystemPrompt string `yaml:"system_prompt"`
}

// LogConfig controls the process-wide slog handler.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a configuration that talks to OpenAI's gpt-4 on port 8080.
func Default() Config {
	return Config{
		Server: ServerConfig{Port: defaultPort},
		Provider: ProviderConfig{
			Kind: KindOpenAI,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the environment.
// An empty path skips the file. The provider credential must come from the environment.
func Load(path string) (Config, error) {
	// A missing .env file is not an error.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return Config{}, fmt.Errorf("resolve config path: %w", err)
		}

		data, err := os.ReadFile(absPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
		}
	}

	cfg.applyDefaults()

	cfg.Provider.APIKey = strings.TrimSpace(os.Getenv(cfg.Provider.APIKeyEnv))
	if cfg.Provider.APIKey == "" {
		return Config{}, fmt.Errorf("%w: export %s before starting the server", ErrMissingAPIKey, cfg.Provider.APIKeyEnv)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	p := &c.Provider
	p.Kind = strings.ToLower(strings.TrimSpace(p.Kind))
	if p.Kind == "" {
		p.Kind = KindOpenAI
	}

	switch p.Kind {
	case KindOpenAI:
		if p.BaseURL == "" {
			p.BaseURL = defaultOpenAIBaseURL
		}
		if p.Model == "" {
			p.Model = defaultOpenAIModel
		}
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = defaultOpenAIKeyEnv
		}
	case KindClaude:
		if p.BaseURL == "" {
			p.BaseURL = defaultClaudeBaseURL
		}
		if p.APIKeyEnv == "" {
			p.APIKeyEnv = defaultClaudeKeyEnv
		}
		if p.MaxTokens == 0 {
			p.MaxTokens = defaultClaudeMaxToken
		}
	}

	if p.Timeout == 0 {
		p.Timeout = defaultTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if c.Chat.MaxHistory < 0 {
		return fmt.Errorf("chat.max_history must not be negative, got %d", c.Chat.MaxHistory)
	}
	return validateProvider(c.Provider)
}

func validateProvider(p ProviderConfig) error {
	switch p.Kind {
	case KindOpenAI, KindClaude:
	default:
		return fmt.Errorf("provider.kind %q must be one of %q or %q", p.Kind, KindOpenAI, KindClaude)
	}

	if strings.TrimSpace(p.APIKey) == "" {
		return fmt.Errorf("provider %s: %w", p.Kind, ErrMissingAPIKey)
	}
	if strings.TrimSpace(p.BaseURL) == "" {
		return fmt.Errorf("provider %s: base_url must be provided", p.Kind)
	}
	if strings.TrimSpace(p.Model) == "" {
		return fmt.Errorf("provider %s: model must be provided", p.Kind)
	}
	if p.Timeout < 0 {
		return fmt.Errorf("provider %s: timeout must not be negative", p.Kind)
	}
	if p.Kind == KindClaude && p.MaxTokens <= 0 {
		return fmt.Errorf("provider %s: max_tokens must be positive", p.Kind)
	}

	for _, model := range p.Models {
		if strings.TrimSpace(model) == "" {
			return fmt.Errorf("provider %s: model id must not be empty", p.Kind)
		}
	}

	for headerKey := range p.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("provider %s: header %q is not a valid canonical HTTP header", p.Kind, headerKey)
		}
	}

	for alias, target := range p.Aliases {
		if strings.TrimSpace(alias) == "" {
			return fmt.Errorf("provider %s: alias name must not be empty", p.Kind)
		}
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("provider %s: alias %q target must not be empty", p.Kind, alias)
		}
	}

	return nil
}

// ModelIDs lists the concrete model ids the provider serves, primary model first.
// The primary model is skipped when it names an alias.
func (p ProviderConfig) ModelIDs() []string {
	seen := make(map[string]struct{}, len(p.Models)+1)
	ids := make([]string, 0, len(p.Models)+1)

	candidates := append([]string{p.Model}, p.Models...)
	for _, id := range candidates {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, isAlias := p.Aliases[id]; isAlias {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
