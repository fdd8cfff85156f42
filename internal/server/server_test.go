package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/jsonapi"
	"github.com/google/go-cmp/cmp"

	"github.com/Yates-Labs/survivalbot/internal/answer"
	"github.com/Yates-Labs/survivalbot/internal/client"
	"github.com/Yates-Labs/survivalbot/internal/models"
	"github.com/Yates-Labs/survivalbot/internal/orchestrator"
	"github.com/Yates-Labs/survivalbot/internal/rag"
	"github.com/Yates-Labs/survivalbot/internal/survival"
)

type fakeAsker struct {
	knowledge *orchestrator.Knowledge
	loadErr   error
	askErr    error
	answer    *answer.Answer
	lastQuery string
	lastTopK  int
}

func (f *fakeAsker) LoadContext(ctx context.Context) (*orchestrator.Knowledge, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.knowledge, nil
}

func (f *fakeAsker) Ask(ctx context.Context, k *orchestrator.Knowledge, query string, topK int) (*orchestrator.Result, error) {
	f.lastQuery = query
	f.lastTopK = topK
	if f.askErr != nil {
		return nil, f.askErr
	}
	return &orchestrator.Result{
		ID:    "req-1",
		Query: query,
		Context: []rag.ContextChunk{
			{Index: 0, Text: k.Contexts[0], Score: 0.9},
		},
		Answer: f.answer,
	}, nil
}

func newFakeAsker() *fakeAsker {
	return &fakeAsker{
		knowledge: &orchestrator.Knowledge{
			Snapshot: &survival.Snapshot{Warnings: []error{errors.New("resource data: timeout")}},
			Contexts: []string{"Monster m1 at (1, 2)", "Survivor s1 in D1 (3, 4)"},
		},
		answer: &answer.Answer{Text: "Go north.", Model: "mock"},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestQueryPost(t *testing.T) {
	asker := newFakeAsker()
	srv := httptest.NewServer(New(discardLogger(), asker, ""))
	defer srv.Close()

	resp, err := client.New(srv.URL, "").QueryPost(context.Background(), models.QueryPostRequest{Text: "where to?", TopK: 2})
	if err != nil {
		t.Fatalf("QueryPost failed: %v", err)
	}

	want := models.QueryPostResponse{
		ID:      "req-1",
		Query:   "where to?",
		Answer:  "Go north.",
		Model:   "mock",
		Context: []models.ContextSnippet{{Index: 0, Text: "Monster m1 at (1, 2)", Score: 0.9}},
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
	if asker.lastTopK != 2 {
		t.Errorf("expected top_k 2 to be passed through, got %d", asker.lastTopK)
	}
}

func TestQueryPost_BadRequests(t *testing.T) {
	handler := New(discardLogger(), newFakeAsker(), "")

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"text":`},
		{name: "empty text", body: `{"text":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(tt.body))
			handler.ServeHTTP(w, r)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", w.Code)
			}
		})
	}
}

func TestQueryPost_PipelineError(t *testing.T) {
	asker := newFakeAsker()
	asker.askErr = rag.ErrEmbeddingFailed
	handler := New(discardLogger(), asker, "")

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"text":"q"}`))
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}

func TestContextGet(t *testing.T) {
	srv := httptest.NewServer(New(discardLogger(), newFakeAsker(), ""))
	defer srv.Close()

	resp, err := client.New(srv.URL+"/", "").ContextGet(context.Background())
	if err != nil {
		t.Fatalf("ContextGet failed: %v", err)
	}
	want := models.ContextGetResponse{
		Contexts: []string{"Monster m1 at (1, 2)", "Survivor s1 in D1 (3, 4)"},
		Warnings: []string{"resource data: timeout"},
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestAuth(t *testing.T) {
	srv := httptest.NewServer(New(discardLogger(), newFakeAsker(), "secret"))
	defer srv.Close()
	ctx := context.Background()

	_, err := client.New(srv.URL, "wrong").ContextGet(ctx)
	var statusErr jsonapi.InvalidStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected status error with wrong token, got %v", err)
	}
	if statusErr.Status != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", statusErr.Status)
	}

	if _, err := client.New(srv.URL, "").QueryPost(ctx, models.QueryPostRequest{Text: "q"}); err == nil {
		t.Error("expected unauthorized error without token")
	}

	if _, err := client.New(srv.URL, "secret").ContextGet(ctx); err != nil {
		t.Errorf("expected success with correct token, got %v", err)
	}

	// The HTML page stays public.
	res, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET / failed: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for index, got %d", res.StatusCode)
	}
}

func TestAuth_IndexQuestion(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantAsked  bool
	}{
		{name: "no header", wantStatus: http.StatusUnauthorized},
		{name: "wrong token", header: "Bearer wrong", wantStatus: http.StatusUnauthorized},
		{name: "bare token without scheme", header: "secret", wantStatus: http.StatusUnauthorized},
		{name: "correct token", header: "Bearer secret", wantStatus: http.StatusOK, wantAsked: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asker := newFakeAsker()
			handler := New(discardLogger(), asker, "secret")

			r := httptest.NewRequest(http.MethodGet, "/?q=where+is+food", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)

			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if asked := asker.lastQuery != ""; asked != tt.wantAsked {
				t.Errorf("expected asked=%v, got lastQuery %q", tt.wantAsked, asker.lastQuery)
			}
		})
	}
}

func TestAuth_RequiresBearerScheme(t *testing.T) {
	handler := New(discardLogger(), newFakeAsker(), "secret")

	r := httptest.NewRequest(http.MethodGet, "/context", nil)
	r.Header.Set("Authorization", "secret")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without Bearer scheme, got %d", w.Code)
	}
}

func TestIndex(t *testing.T) {
	asker := newFakeAsker()
	handler := New(discardLogger(), asker, "")

	t.Run("form only", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		body, _ := io.ReadAll(w.Result().Body)
		if !strings.Contains(string(body), "Survival Chatbot") {
			t.Error("expected title in page")
		}
		if strings.Contains(string(body), "Chatbot Response:") {
			t.Error("did not expect a response section without a query")
		}
		if asker.lastQuery != "" {
			t.Error("pipeline should not run without a query")
		}
	})

	t.Run("with query", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?q=is+it+safe%3F", nil))
		body, _ := io.ReadAll(w.Result().Body)
		if !strings.Contains(string(body), "Chatbot Response:") || !strings.Contains(string(body), "Go north.") {
			t.Errorf("expected answer in page, got:\n%s", body)
		}
		if asker.lastQuery != "is it safe?" {
			t.Errorf("expected query to reach the pipeline, got %q", asker.lastQuery)
		}
	})

	t.Run("load failure", func(t *testing.T) {
		failing := newFakeAsker()
		failing.loadErr = survival.ErrMissingField
		w := httptest.NewRecorder()
		New(discardLogger(), failing, "").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/?q=hi", nil))
		body, _ := io.ReadAll(w.Result().Body)
		if !strings.Contains(string(body), "Error generating response") {
			t.Errorf("expected error message in page, got:\n%s", body)
		}
	})
}

func TestQueryResponseJSONShape(t *testing.T) {
	w := httptest.NewRecorder()
	New(discardLogger(), newFakeAsker(), "").ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"text":"q"}`)))

	var raw map[string]any
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	for _, key := range []string{"id", "query", "answer", "failed", "context"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("expected key %q in response", key)
		}
	}
}
