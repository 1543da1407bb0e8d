package claude

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chat-gateway/internal/config"
	"chat-gateway/internal/models"
)

func TestChatLiftsSystemTurnAndKeepsOrder(t *testing.T) {
	var got messagePayload
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("x-api-key") != "test-key" || r.Header.Get("anthropic-version") != apiVersion {
			http.Error(w, `{"error":{"type":"authentication_error","message":"invalid x-api-key"}}`, http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"role": "assistant",
			"content": [{"type": "text", "text": "Take two "}, {"type": "text", "text": "aspirin"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 4}
		}`))
	}))
	defer upstream.Close()

	p, err := New("claude", config.ProviderConfig{
		BaseURL: upstream.URL,
		Model:   "claude-3-5-sonnet-latest",
		APIKey:  "test-key",
	}, upstream.Client())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	resp, err := p.Chat(context.Background(), models.UnifiedChatRequest{
		Model: "claude-3-5-sonnet-latest",
		Messages: []models.Message{
			{Role: models.RoleSystem, Content: "You are a careful assistant."},
			{Role: models.RoleUser, Content: "hi"},
			{Role: models.RoleAssistant, Content: "hello"},
			{Role: models.RoleUser, Content: "I have a headache"},
		},
		Options: map[string]any{"max_tokens": 512},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if resp.Message.Content != "Take two aspirin" {
		t.Fatalf("unexpected content %q", resp.Message.Content)
	}
	if resp.Usage.TotalTokens != 14 {
		t.Fatalf("unexpected usage %+v", resp.Usage)
	}
	if got.System != "You are a careful assistant." {
		t.Fatalf("unexpected system %q", got.System)
	}
	if got.MaxTokens != 512 {
		t.Fatalf("unexpected max_tokens %d", got.MaxTokens)
	}
	wantRoles := []string{models.RoleUser, models.RoleAssistant, models.RoleUser}
	if len(got.Messages) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d", len(wantRoles), len(got.Messages))
	}
	for i, role := range wantRoles {
		if got.Messages[i].Role != role {
			t.Errorf("message[%d] role = %q, want %q", i, got.Messages[i].Role, role)
		}
	}
	if got.Messages[2].Content[0].Text != "I have a headache" {
		t.Errorf("unexpected final text %q", got.Messages[2].Content[0].Text)
	}
}

func TestBuildMessagePayloadRejects(t *testing.T) {
	tests := []struct {
		name     string
		messages []models.Message
		options  map[string]any
		wantErr  string
	}{
		{
			name:     "missing max tokens",
			messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
			wantErr:  "max_tokens",
		},
		{
			name:     "assistant first",
			messages: []models.Message{{Role: models.RoleAssistant, Content: "hi"}, {Role: models.RoleUser, Content: "yo"}},
			options:  map[string]any{"max_tokens": 16},
			wantErr:  "must start with a user message",
		},
		{
			name:     "only system",
			messages: []models.Message{{Role: models.RoleSystem, Content: "rules"}},
			options:  map[string]any{"max_tokens": 16},
			wantErr:  "at least one user message",
		},
		{
			name:     "empty content",
			messages: []models.Message{{Role: models.RoleUser, Content: "  "}},
			options:  map[string]any{"max_tokens": 16},
			wantErr:  "must not be empty",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildMessagePayload(models.UnifiedChatRequest{Model: "m", Messages: tc.messages, Options: tc.options})
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestChatReportsAPIError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`))
	}))
	defer upstream.Close()

	p, _ := New("claude", config.ProviderConfig{BaseURL: upstream.URL, Model: "m", APIKey: "k"}, upstream.Client())
	_, err := p.Chat(context.Background(), models.UnifiedChatRequest{
		Model:    "m",
		Messages: []models.Message{{Role: models.RoleUser, Content: "hi"}},
		Options:  map[string]any{"max_tokens": 16},
	})
	if err == nil || !strings.Contains(err.Error(), "claude error (rate_limit_error): slow down") {
		t.Fatalf("unexpected error %v", err)
	}
}
