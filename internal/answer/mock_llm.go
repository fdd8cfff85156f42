package answer

import (
	"context"
	"fmt"
	"sync"
)

// MockLLM is a deterministic LLM implementation for testing.
type MockLLM struct {
	// Response is the fixed text returned by Complete.
	// If empty, a default response is generated from the messages.
	Response string

	// Error, if set, is returned by Complete instead of a response.
	Error error

	mu           sync.Mutex
	lastMessages []Message
	calls        int
}

// NewMockLLM creates a mock LLM with the given fixed response.
func NewMockLLM(response string) *MockLLM {
	return &MockLLM{Response: response}
}

// NewMockLLMWithError creates a mock LLM that always returns an error.
func NewMockLLMWithError(err error) *MockLLM {
	return &MockLLM{Error: err}
}

// Complete returns the configured response or generates a deterministic one.
func (m *MockLLM) Complete(ctx context.Context, messages []Message) (string, error) {
	m.mu.Lock()
	m.lastMessages = append([]Message(nil), messages...)
	m.calls++
	m.mu.Unlock()

	if m.Error != nil {
		return "", m.Error
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return generateMockResponse(messages), nil
}

// LastMessages returns a copy of the messages from the most recent call.
func (m *MockLLM) LastMessages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.lastMessages...)
}

// Calls returns how many times Complete was invoked.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func generateMockResponse(messages []Message) string {
	question := ""
	contexts := 0
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			if question == "" {
				question = msg.Content
			}
		case RoleSystem:
			contexts++
		}
	}
	return fmt.Sprintf("Answering %q using %d context entries.", question, contexts)
}
