package answer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tmc/langchaingo/llms"
)

type ollamaChatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newOllamaServer(t *testing.T, reply string, captured *ollamaChatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(reply + "\n"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func ollamaConfig(baseURL string) LLMConfig {
	return LLMConfig{
		Provider: ProviderOllama,
		Model:    "mistral",
		BaseURL:  baseURL,
	}
}

func TestOllamaLLM_Complete(t *testing.T) {
	var captured ollamaChatRequest
	srv := newOllamaServer(t, `{"model":"mistral","message":{"role":"assistant","content":"Move north."},"done":true}`, &captured)

	llm, err := NewOllamaLLM(ollamaConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewOllamaLLM failed: %v", err)
	}

	text, err := llm.Complete(context.Background(), BuildMessages("Where to?", []string{"Monster m1 at (1, 2)", "Survivor s1 in D1 (3, 4)"}))
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if text != "Move north." {
		t.Errorf("expected 'Move north.', got %q", text)
	}

	if captured.Model != "mistral" {
		t.Errorf("expected model mistral, got %q", captured.Model)
	}
	wantRoles := []string{"user", "system", "system"}
	if len(captured.Messages) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d", len(wantRoles), len(captured.Messages))
	}
	for i, role := range wantRoles {
		if captured.Messages[i].Role != role {
			t.Errorf("message %d: expected role %q, got %q", i, role, captured.Messages[i].Role)
		}
	}
	if captured.Messages[0].Content != "Where to?" {
		t.Errorf("expected query first, got %q", captured.Messages[0].Content)
	}
}

func TestOllamaLLM_Error(t *testing.T) {
	srv := newOllamaServer(t, `{"error":"model \"mistral\" not found"}`, nil)

	llm, err := NewOllamaLLM(ollamaConfig(srv.URL))
	if err != nil {
		t.Fatalf("NewOllamaLLM failed: %v", err)
	}

	_, err = llm.Complete(context.Background(), BuildMessages("q", nil))
	if !errors.Is(err, ErrLLMFailed) {
		t.Errorf("expected ErrLLMFailed, got %v", err)
	}

	a := NewGenerator(llm, ollamaConfig(srv.URL)).Generate(context.Background(), "q", nil)
	if !a.Failed {
		t.Error("expected generator to report failure")
	}
}

func TestOllamaLLM_Defaults(t *testing.T) {
	llm, err := NewOllamaLLM(DefaultLLMConfig())
	if err != nil {
		t.Fatalf("NewOllamaLLM failed: %v", err)
	}
	if llm.config.BaseURL != DefaultOllamaURL {
		t.Errorf("expected Groq URL to be replaced with %s, got %s", DefaultOllamaURL, llm.config.BaseURL)
	}
	if llm.config.Model != DefaultOllamaModel {
		t.Errorf("expected model %s, got %s", DefaultOllamaModel, llm.config.Model)
	}
}

func TestChatMessageType(t *testing.T) {
	tests := []struct {
		role Role
		want llms.ChatMessageType
	}{
		{role: RoleSystem, want: llms.ChatMessageTypeSystem},
		{role: RoleUser, want: llms.ChatMessageTypeHuman},
		{role: RoleAssistant, want: llms.ChatMessageTypeAI},
		{role: Role("other"), want: llms.ChatMessageTypeHuman},
	}
	for _, tt := range tests {
		if got := chatMessageType(tt.role); got != tt.want {
			t.Errorf("chatMessageType(%q) = %q, want %q", tt.role, got, tt.want)
		}
	}
}
