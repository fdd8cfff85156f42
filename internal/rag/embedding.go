package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Common errors for embedding operations
var (
	ErrEmptyTexts      = errors.New("no texts provided for embedding")
	ErrMissingAPIKey   = errors.New("embedding API key not set")
	ErrEmbeddingFailed = errors.New("embedding generation failed")
	ErrUnknownProvider = errors.New("unknown embedding provider")
)

// Embedding providers
const (
	ProviderLocal  = "local"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

const (
	DefaultDimension = 384
	DefaultMaxTokens = 512
)

// EmbeddingRecord represents a single text embedding with metadata
type EmbeddingRecord struct {
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
	Model     string    `json:"model"`
}

// Embedder defines the interface for generating text embeddings
type Embedder interface {
	// Embed generates embeddings for the provided texts
	Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error)

	// GetModel returns the embedding model identifier
	GetModel() string

	// GetDimension returns the embedding vector dimension
	GetDimension() int
}

// EmbedderConfig selects and configures an embedding provider
type EmbedderConfig struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKey    string
	Dimension int
	MaxTokens int
}

// DefaultEmbedderConfig returns the offline local encoder settings
func DefaultEmbedderConfig() EmbedderConfig {
	return EmbedderConfig{
		Provider:  ProviderLocal,
		Model:     LocalModelName,
		Dimension: DefaultDimension,
		MaxTokens: DefaultMaxTokens,
	}
}

// NewEmbedder builds the embedder named by cfg.Provider.
// It is meant to be called once per process; the result is safe for concurrent use.
func NewEmbedder(cfg EmbedderConfig) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderLocal:
		return NewLocalEmbedder(cfg.Dimension, cfg.MaxTokens), nil
	case ProviderOpenAI:
		return NewOpenAIEmbedder(cfg)
	case ProviderOllama:
		return NewOllamaEmbedder(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}
