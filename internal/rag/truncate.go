package rag

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const truncateEncoding = "cl100k_base"

// Truncator cuts texts to a token budget before they are sent to a remote embedder.
type Truncator struct {
	maxTokens int

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTruncator creates a truncator. The BPE ranks are loaded lazily on first use.
func NewTruncator(maxTokens int) *Truncator {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Truncator{maxTokens: maxTokens}
}

// Truncate returns text limited to maxTokens tokens. If the encoding cannot be
// loaded it falls back to a rune budget of four runes per token.
func (t *Truncator) Truncate(text string) string {
	// every token covers at least one byte
	if len(text) <= t.maxTokens {
		return text
	}

	t.once.Do(func() {
		enc, err := tiktoken.GetEncoding(truncateEncoding)
		if err == nil {
			t.enc = enc
		}
	})

	if t.enc == nil {
		runes := []rune(text)
		if limit := t.maxTokens * 4; len(runes) > limit {
			return string(runes[:limit])
		}
		return text
	}

	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= t.maxTokens {
		return text
	}
	return t.enc.Decode(tokens[:t.maxTokens])
}

// TruncateAll truncates every text, returning a new slice.
func (t *Truncator) TruncateAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, text := range texts {
		out[i] = t.Truncate(text)
	}
	return out
}
