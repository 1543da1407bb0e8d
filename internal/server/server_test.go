package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"chat-gateway/internal/config"
	"chat-gateway/internal/gateway"
	"chat-gateway/internal/models"
)

type recordingCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	calls [][]models.Message
}

func (r *recordingCompleter) Complete(ctx context.Context, messages []models.Message) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, messages)
	return r.reply, r.err
}

func (r *recordingCompleter) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func newTestServer(t *testing.T, completer gateway.Completer, mutate func(*config.Config)) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Provider.APIKey = "test-key"
	cfg.Provider.BaseURL = "http://upstream.invalid"
	cfg.Provider.Model = "gpt-4"
	if mutate != nil {
		mutate(&cfg)
	}

	gw, err := gateway.New(completer)
	if err != nil {
		t.Fatalf("gateway.New: %v", err)
	}
	srv, err := New(cfg, gw)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func do(srv *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.app.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Response *string `json:"response"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	if body.Response == nil {
		t.Fatalf("body %q has no response field", rec.Body.String())
	}
	return *body.Response
}

func TestHealthDoesNotCallProvider(t *testing.T) {
	stub := &recordingCompleter{err: errors.New("provider down")}
	srv := newTestServer(t, stub, nil)

	rec := do(srv, http.MethodGet, "/api/health", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"status":"ok"}` {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
	if stub.callCount() != 0 {
		t.Fatalf("health check called the provider")
	}
}

func TestChatReturnsProviderReply(t *testing.T) {
	stub := &recordingCompleter{reply: "Take two aspirin"}
	srv := newTestServer(t, stub, nil)

	rec := do(srv, http.MethodPost, "/api/chat", `{"message":"I have a headache","history":[]}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if strings.TrimSpace(rec.Body.String()) != `{"response":"Take two aspirin"}` {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestChatFoldsProviderFailureIntoResponse(t *testing.T) {
	stub := &recordingCompleter{err: errors.New("openai error (rate_limit_exceeded): slow down")}
	srv := newTestServer(t, stub, nil)

	rec := do(srv, http.MethodPost, "/api/chat", `{"message":"hello"}`, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got := decodeResponse(t, rec)
	want := "I'm sorry, I encountered an error: openai error (rate_limit_exceeded): slow down"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestChatSecondTurnCarriesHistory(t *testing.T) {
	stub := &recordingCompleter{reply: "Drink some water"}
	srv := newTestServer(t, stub, nil)

	first := do(srv, http.MethodPost, "/api/chat", `{"message":"I have a headache","history":[]}`, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first turn: %d", first.Code)
	}
	reply := decodeResponse(t, first)

	second, _ := json.Marshal(map[string]any{
		"message": "It is still there",
		"history": []map[string]string{
			{"role": "user", "content": "I have a headache"},
			{"role": "assistant", "content": reply},
		},
	})
	rec := do(srv, http.MethodPost, "/api/chat", string(second), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("second turn: %d", rec.Code)
	}

	if stub.callCount() != 2 {
		t.Fatalf("expected 2 provider calls, got %d", stub.callCount())
	}
	want := []models.Message{
		{Role: models.RoleUser, Content: "I have a headache"},
		{Role: models.RoleAssistant, Content: "Drink some water"},
		{Role: models.RoleUser, Content: "It is still there"},
	}
	got := stub.calls[1]
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("message[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestChatRejectsInvalidRequests(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"malformed json", `{"message":`, http.StatusBadRequest},
		{"missing message", `{"history":[]}`, http.StatusBadRequest},
		{"blank message", `{"message":""}`, http.StatusBadRequest},
		{"whitespace message", `{"message":"   \n "}`, http.StatusBadRequest},
		{"bad role", `{"message":"hi","history":[{"role":"robot","content":"x"}]}`, http.StatusBadRequest},
		{"trailing data", `{"message":"hi"}{"message":"again"}`, http.StatusBadRequest},
		{"oversized body", `{"message":"` + strings.Repeat("a", maxBodyBytes) + `"}`, http.StatusRequestEntityTooLarge},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			stub := &recordingCompleter{reply: "unused"}
			srv := newTestServer(t, stub, nil)

			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tc.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			srv.app.ServeHTTP(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
			var body errorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error.Message == "" {
				t.Fatalf("expected error body, got %q", rec.Body.String())
			}
			if stub.callCount() != 0 {
				t.Fatalf("provider called for invalid request")
			}
		})
	}
}

func TestChatEnforcesMaxHistory(t *testing.T) {
	stub := &recordingCompleter{reply: "ok"}
	srv := newTestServer(t, stub, func(cfg *config.Config) {
		cfg.Chat.MaxHistory = 2
	})

	within := `{"message":"c","history":[{"role":"user","content":"a"},{"role":"assistant","content":"b"}]}`
	if rec := do(srv, http.MethodPost, "/api/chat", within, nil); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 within limit, got %d", rec.Code)
	}

	over := `{"message":"d","history":[{"role":"user","content":"a"},{"role":"assistant","content":"b"},{"role":"user","content":"c"}]}`
	rec := do(srv, http.MethodPost, "/api/chat", over, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 over limit, got %d", rec.Code)
	}
	var body errorBody
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error.Code != "history_too_long" {
		t.Fatalf("unexpected error code %q", body.Error.Code)
	}
	if stub.callCount() != 1 {
		t.Fatalf("expected exactly one provider call, got %d", stub.callCount())
	}
}

func TestIndexServesChatPage(t *testing.T) {
	srv := newTestServer(t, &recordingCompleter{}, nil)

	rec := do(srv, http.MethodGet, "/", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"/api/chat", `id="newChatButton"`, `class="chip"`, "Nutrition advice"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestCORSAllowsAnyOrigin(t *testing.T) {
	srv := newTestServer(t, &recordingCompleter{reply: "ok"}, nil)

	t.Run("preflight", func(t *testing.T) {
		rec := do(srv, http.MethodOptions, "/api/chat", "", map[string]string{
			"Origin":                         "http://elsewhere.example",
			"Access-Control-Request-Method":  http.MethodPost,
			"Access-Control-Request-Headers": "content-type,x-custom",
		})
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("allow origin = %q", got)
		}
		if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "content-type,x-custom" {
			t.Fatalf("allow headers = %q", got)
		}
	})

	t.Run("simple request", func(t *testing.T) {
		rec := do(srv, http.MethodGet, "/api/health", "", map[string]string{"Origin": "http://elsewhere.example"})
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("allow origin = %q", got)
		}
	})
}

func TestUnknownRouteReturnsJSONError(t *testing.T) {
	srv := newTestServer(t, &recordingCompleter{}, nil)

	rec := do(srv, http.MethodGet, "/api/missing", "", nil)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	gw, _ := gateway.New(&recordingCompleter{})
	cfg := config.Default()
	if _, err := New(cfg, gw); err == nil {
		t.Fatal("expected error for config without api key")
	}
	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected error for nil gateway")
	}
}
