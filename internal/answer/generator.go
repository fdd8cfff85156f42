package answer

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const errorPrefix = "Error generating response: "

var (
	ErrGenerationFailed = errors.New("answer generation failed")
)

// Answer is the chatbot's reply to one question.
type Answer struct {
	// Query is the question as asked
	Query string `json:"query"`

	// Text is the model's reply, or an error description when Failed is set
	Text string `json:"text"`

	// Failed reports whether Text describes a failure rather than a reply
	Failed bool `json:"failed"`

	// Err is the underlying failure, if any
	Err error `json:"-"`

	// Model is the LLM model asked for the reply
	Model string `json:"model"`

	// GeneratedAt is when the reply was produced
	GeneratedAt time.Time `json:"generated_at"`
}

// Generator produces answers from a query and its selected context.
type Generator struct {
	llm    LLM
	config LLMConfig
}

// NewGenerator creates an answer generator with the given LLM implementation.
func NewGenerator(llm LLM, config LLMConfig) *Generator {
	return &Generator{
		llm:    llm,
		config: config,
	}
}

// Model returns the configured model identifier.
func (g *Generator) Model() string {
	return g.config.Model
}

// Generate asks the LLM to answer query given contexts. It never fails: any
// error is rendered into the answer text and flagged with Failed.
func (g *Generator) Generate(ctx context.Context, query string, contexts []string) *Answer {
	a := &Answer{
		Query: query,
		Model: g.config.Model,
	}

	var text string
	var err error
	if g.llm == nil {
		err = fmt.Errorf("%w: LLM is required", ErrGenerationFailed)
	} else {
		text, err = g.llm.Complete(ctx, BuildMessages(query, contexts))
	}

	a.GeneratedAt = time.Now()
	if err != nil {
		a.Text = errorPrefix + err.Error()
		a.Failed = true
		a.Err = err
		return a
	}
	a.Text = text
	return a
}
