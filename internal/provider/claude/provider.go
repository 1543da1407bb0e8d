package claude

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"chat-gateway/internal/config"
	"chat-gateway/internal/models"
)

const (
	contentTypeJSON = "application/json"
	userAgent       = "chat-gateway/0.1"
	apiVersion      = "2023-06-01"
)

// Provider implements the Anthropic Messages API.
type Provider struct {
	name        string
	apiKey      string
	headers     map[string]string
	client      *http.Client
	models      []models.Model
	messagesURL string
}

// New constructs a Claude provider instance.
func New(name string, cfg config.ProviderConfig, client *http.Client) (*Provider, error) {
	if client == nil {
		return nil, errors.New("http client must not be nil")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		return nil, errors.New("base url must not be empty")
	}

	ids := cfg.ModelIDs()
	served := make([]models.Model, 0, len(ids))
	for _, id := range ids {
		served = append(served, models.Model{ID: id, Provider: name})
	}

	return &Provider{
		name:        name,
		apiKey:      cfg.APIKey,
		headers:     cfg.Headers,
		client:      client,
		models:      served,
		messagesURL: baseURL + "/v1/messages",
	}, nil
}

func (p *Provider) Name() string {
	return p.name
}

func (p *Provider) ListModels(ctx context.Context) ([]models.Model, error) {
	result := make([]models.Model, len(p.models))
	copy(result, p.models)
	return result, nil
}

func (p *Provider) Chat(ctx context.Context, req models.UnifiedChatRequest) (*models.UnifiedChatResponse, error) {
	payload, err := buildMessagePayload(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := p.newRequest(ctx, http.MethodPost, p.messagesURL, payload)
	if err != nil {
		return nil, err
	}

	httpResp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("claude chat request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return nil, parseAPIError(httpResp)
	}

	var providerResp messageResponse
	if err := decodeJSON(httpResp.Body, &providerResp); err != nil {
		return nil, err
	}

	return providerResp.toUnified()
}

func (p *Provider) newRequest(ctx context.Context, method, url string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("construct request: %w", err)
	}

	req.Header.Set("Content-Type", contentTypeJSON)
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

type messagePayload struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	System    string    `json:"system,omitempty"`
	MaxTokens int       `json:"max_tokens"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// buildMessagePayload lifts system turns into the top-level system field;
// user and assistant turns keep their order.
func buildMessagePayload(req models.UnifiedChatRequest) (messagePayload, error) {
	messages := make([]message, 0, len(req.Messages))
	var systemParts []string

	for _, msg := range req.Messages {
		switch msg.Role {
		case models.RoleSystem:
			if strings.TrimSpace(msg.Content) != "" {
				systemParts = append(systemParts, msg.Content)
			}
		case models.RoleUser, models.RoleAssistant:
			if strings.TrimSpace(msg.Content) == "" {
				return messagePayload{}, errors.New("claude messages must not be empty")
			}
			messages = append(messages, message{
				Role:    msg.Role,
				Content: []contentBlock{{Type: "text", Text: msg.Content}},
			})
		default:
			return messagePayload{}, fmt.Errorf("claude provider does not support role %q", msg.Role)
		}
	}

	if len(messages) == 0 {
		return messagePayload{}, errors.New("claude request requires at least one user message")
	}
	if messages[0].Role != models.RoleUser {
		return messagePayload{}, errors.New("claude conversation must start with a user message")
	}

	maxTokens, _ := req.Options["max_tokens"].(int)
	if maxTokens <= 0 {
		return messagePayload{}, errors.New("claude requests require a positive max_tokens value")
	}

	payload := messagePayload{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: maxTokens,
	}
	if len(systemParts) > 0 {
		payload.System = strings.Join(systemParts, "\n\n")
	}
	return payload, nil
}

type messageResponse struct {
	ID         string         `json:"id"`
	Role       string         `json:"role"`
	Content    []contentBlock `json:"content"`
	Usage      usageBlock     `json:"usage"`
	StopReason string         `json:"stop_reason"`
}

type usageBlock struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (r messageResponse) toUnified() (*models.UnifiedChatResponse, error) {
	if len(r.Content) == 0 {
		return nil, errors.New("claude response missing content blocks")
	}

	var text strings.Builder
	for _, block := range r.Content {
		if block.Type != "text" {
			continue
		}
		text.WriteString(block.Text)
	}

	role := r.Role
	if role == "" {
		role = models.RoleAssistant
	}

	return &models.UnifiedChatResponse{
		ID: r.ID,
		Message: models.Message{
			Role:    role,
			Content: text.String(),
		},
		FinishReason: r.StopReason,
		Usage: models.Usage{
			PromptTokens:     r.Usage.InputTokens,
			CompletionTokens: r.Usage.OutputTokens,
			TotalTokens:      r.Usage.InputTokens + r.Usage.OutputTokens,
		},
	}, nil
}

type apiErrorResponse struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func parseAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("upstream error status %d and failed to read body: %w", resp.StatusCode, err)
	}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("claude error (%s): %s", apiErr.Error.Type, apiErr.Error.Message)
	}

	return fmt.Errorf("upstream error status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func decodeJSON(reader io.Reader, target any) error {
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}
