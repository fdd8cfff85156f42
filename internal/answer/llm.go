// Package answer turns a user question and its selected context into a chat
// completion. It defines a provider-agnostic LLM interface with implementations
// for OpenAI-compatible APIs (Groq by default), Ollama, and a deterministic mock
// for testing.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrLLMFailed          = errors.New("LLM request failed")
	ErrInvalidConfig      = errors.New("invalid LLM configuration")
	ErrUnexpectedResponse = errors.New("unexpected completion response")
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a chat completion request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// LLM defines the interface for interacting with chat models.
// Implementations must be stateless and thread-safe.
type LLM interface {
	// Complete sends the messages and returns the content of the first choice.
	Complete(ctx context.Context, messages []Message) (string, error)
}

// LLM providers
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderMock   = "mock"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1/"
	DefaultModel   = "mixtral-8x7b-32768"
)

// LLMConfig holds common configuration options for LLM providers.
type LLMConfig struct {
	// Provider selects the implementation: "openai" (any OpenAI-compatible API), "ollama" or "mock"
	Provider string

	// Model specifies the model identifier
	Model string

	// BaseURL is the API root, e.g. https://api.groq.com/openai/v1/
	BaseURL string

	// APIKey is the bearer token for the provider
	APIKey string

	// Temperature controls randomness (0 = provider default)
	Temperature float32

	// MaxTokens limits the response length (0 = use provider default)
	MaxTokens int

	// MaxRetries is the number of retries on transient failures
	MaxRetries int

	// Timeout bounds a single completion request (0 = no limit beyond ctx)
	Timeout time.Duration
}

// DefaultLLMConfig returns the Groq-hosted Mixtral configuration.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:   ProviderOpenAI,
		Model:      DefaultModel,
		BaseURL:    DefaultBaseURL,
		MaxRetries: 2,
		Timeout:    60 * time.Second,
	}
}

// NewLLM builds the LLM named by config.Provider.
func NewLLM(config LLMConfig) (LLM, error) {
	switch strings.ToLower(config.Provider) {
	case "", ProviderOpenAI:
		return NewOpenAILLM(config)
	case ProviderOllama:
		return NewOllamaLLM(config)
	case ProviderMock:
		return NewMockLLM(""), nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, config.Provider)
	}
}
