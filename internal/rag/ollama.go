package rag

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	DefaultOllamaURL            = "http://localhost:11434"
	DefaultOllamaEmbeddingModel = "nomic-embed-text"
)

// OllamaEmbedder generates embeddings with a model served by a local Ollama instance
type OllamaEmbedder struct {
	embedder  embeddings.Embedder
	model     string
	dimension int
}

// NewOllamaEmbedder creates an embedder backed by Ollama
func NewOllamaEmbedder(cfg EmbedderConfig) (*OllamaEmbedder, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaURL
	}
	if cfg.Model == "" || cfg.Model == LocalModelName {
		cfg.Model = DefaultOllamaEmbeddingModel
	}

	ec, err := ollama.New(
		ollama.WithModel(cfg.Model),
		ollama.WithHTTPClient(&http.Client{}),
		ollama.WithServerURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}
	emb, err := embeddings.NewEmbedder(ec)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	return &OllamaEmbedder{
		embedder:  emb,
		model:     cfg.Model,
		dimension: cfg.Dimension,
	}, nil
}

func (e *OllamaEmbedder) GetModel() string {
	return e.model
}

// GetDimension returns the configured dimension; the model decides the real one.
func (e *OllamaEmbedder) GetDimension() int {
	return e.dimension
}

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyTexts
	}

	vectors, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingFailed, len(texts), len(vectors))
	}

	records := make([]EmbeddingRecord, len(texts))
	for i, v := range vectors {
		records[i] = EmbeddingRecord{
			Text:      texts[i],
			Embedding: v,
			Index:     i,
			Model:     e.model,
		}
	}
	return records, nil
}
