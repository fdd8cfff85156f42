// Package server exposes the question answering pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/respond"
	"github.com/rs/cors"

	"github.com/Yates-Labs/survivalbot/internal/models"
	"github.com/Yates-Labs/survivalbot/internal/orchestrator"
)

// Asker answers questions against freshly loaded context.
type Asker interface {
	LoadContext(ctx context.Context) (*orchestrator.Knowledge, error)
	Ask(ctx context.Context, k *orchestrator.Knowledge, query string, topK int) (*orchestrator.Result, error)
}

// New returns the HTTP handler. When token is non-empty the JSON routes, and
// GET / with a ?q= question, require "Authorization: Bearer <token>".
func New(log *slog.Logger, asker Asker, token string) http.Handler {
	api := http.NewServeMux()
	api.Handle("POST /query", QueryHandler{log: log, asker: asker})
	api.Handle("GET /context", ContextHandler{log: log, asker: asker})

	auth := NewAuth(token, api)

	mux := http.NewServeMux()
	mux.Handle("GET /{$}", IndexHandler{log: log, asker: asker, auth: auth})
	mux.Handle("/", auth)

	return cors.AllowAll().Handler(mux)
}

// QueryHandler serves POST /query.
type QueryHandler struct {
	log   *slog.Logger
	asker Asker
}

func (h QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.QueryPostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error("failed to decode body", slog.Any("error", err))
		respond.WithError(w, "failed to decode body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respond.WithError(w, "text is required", http.StatusBadRequest)
		return
	}

	k, err := h.asker.LoadContext(r.Context())
	if err != nil {
		h.log.Error("failed to load context", slog.Any("error", err))
		respond.WithError(w, "failed to load context", http.StatusInternalServerError)
		return
	}

	res, err := h.asker.Ask(r.Context(), k, req.Text, req.TopK)
	if err != nil {
		h.log.Error("failed to answer query", slog.Any("error", err))
		respond.WithError(w, "failed to answer query", http.StatusInternalServerError)
		return
	}

	respond.WithJSON(w, NewQueryResponse(res), http.StatusOK)
}

// NewQueryResponse converts a pipeline result to its wire form.
func NewQueryResponse(res *orchestrator.Result) models.QueryPostResponse {
	resp := models.QueryPostResponse{
		ID:      res.ID,
		Query:   res.Query,
		Context: make([]models.ContextSnippet, len(res.Context)),
	}
	if res.Answer != nil {
		resp.Answer = res.Answer.Text
		resp.Failed = res.Answer.Failed
		resp.Model = res.Answer.Model
	}
	for i, c := range res.Context {
		resp.Context[i] = models.ContextSnippet{Index: c.Index, Text: c.Text, Score: c.Score}
	}
	return resp
}

// ContextHandler serves GET /context.
type ContextHandler struct {
	log   *slog.Logger
	asker Asker
}

func (h ContextHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	k, err := h.asker.LoadContext(r.Context())
	if err != nil {
		h.log.Error("failed to load context", slog.Any("error", err))
		respond.WithError(w, "failed to load context", http.StatusInternalServerError)
		return
	}

	resp := models.ContextGetResponse{
		Contexts: k.Contexts,
		Warnings: k.Snapshot.WarningMessages(),
	}
	if resp.Contexts == nil {
		resp.Contexts = []string{}
	}
	if resp.Warnings == nil {
		resp.Warnings = []string{}
	}
	respond.WithJSON(w, resp, http.StatusOK)
}
