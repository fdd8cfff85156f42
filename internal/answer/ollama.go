package answer

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

const (
	DefaultOllamaURL   = "http://localhost:11434"
	DefaultOllamaModel = "mistral"
)

// OllamaLLM implements the LLM interface with a model served by Ollama.
type OllamaLLM struct {
	model  llms.Model
	config LLMConfig
}

// NewOllamaLLM creates an Ollama-backed LLM. No request is made until Complete.
func NewOllamaLLM(config LLMConfig) (*OllamaLLM, error) {
	if config.BaseURL == "" || config.BaseURL == DefaultBaseURL {
		config.BaseURL = DefaultOllamaURL
	}
	if config.Model == "" || config.Model == DefaultModel {
		config.Model = DefaultOllamaModel
	}

	httpClient := &http.Client{Timeout: config.Timeout}
	llmc, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithHTTPClient(httpClient),
		ollama.WithServerURL(config.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM: %w", err)
	}

	return &OllamaLLM{
		model:  llmc,
		config: config,
	}, nil
}

func (o *OllamaLLM) Complete(ctx context.Context, messages []Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("%w: no messages", ErrInvalidConfig)
	}

	content := make([]llms.MessageContent, len(messages))
	for i, m := range messages {
		content[i] = llms.TextParts(chatMessageType(m.Role), m.Content)
	}

	var opts []llms.CallOption
	if o.config.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(float64(o.config.Temperature)))
	}
	if o.config.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(o.config.MaxTokens))
	}

	resp, err := o.model.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrLLMFailed, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrUnexpectedResponse)
	}
	return resp.Choices[0].Content, nil
}

func chatMessageType(r Role) llms.ChatMessageType {
	switch r {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
