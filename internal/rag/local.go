package rag

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const LocalModelName = "local-hash-meanpool"

// LocalEmbedder is an offline sentence encoder. Each token maps to a fixed
// pseudo-random unit vector derived from its hash, and a text is the mean of
// its token vectors. Identical texts always produce identical vectors.
type LocalEmbedder struct {
	dimension int
	maxTokens int
}

// NewLocalEmbedder creates a local embedder. Non-positive arguments take the defaults.
func NewLocalEmbedder(dimension, maxTokens int) *LocalEmbedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &LocalEmbedder{
		dimension: dimension,
		maxTokens: maxTokens,
	}
}

func (e *LocalEmbedder) GetModel() string {
	return LocalModelName
}

func (e *LocalEmbedder) GetDimension() int {
	return e.dimension
}

// Embed encodes every text. It only fails on empty input or a cancelled context.
func (e *LocalEmbedder) Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyTexts
	}

	records := make([]EmbeddingRecord, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records[i] = EmbeddingRecord{
			Text:      text,
			Embedding: e.encode(text),
			Index:     i,
			Model:     LocalModelName,
		}
	}
	return records, nil
}

func (e *LocalEmbedder) encode(text string) []float32 {
	tokens := Tokenize(text)
	if len(tokens) > e.maxTokens {
		tokens = tokens[:e.maxTokens]
	}

	sum := make([]float64, e.dimension)
	for _, tok := range tokens {
		for j, v := range e.tokenVector(tok) {
			sum[j] += v
		}
	}

	out := make([]float32, e.dimension)
	if len(tokens) == 0 {
		return out
	}
	n := float64(len(tokens))
	for j, v := range sum {
		out[j] = float32(v / n)
	}
	return out
}

// tokenVector returns the unit vector for a token.
func (e *LocalEmbedder) tokenVector(token string) []float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	state := h.Sum64()

	vec := make([]float64, e.dimension)
	var norm float64
	for j := range vec {
		state = splitmix64(state)
		// map to [-1, 1)
		vec[j] = float64(state>>11)/float64(1<<52) - 1
		norm += vec[j] * vec[j]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec
	}
	for j := range vec {
		vec[j] /= norm
	}
	return vec
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Tokenize lower-cases text and splits it into word and number tokens.
// Decimal numbers such as "-3.5" stay one token; other punctuation is dropped.
func Tokenize(text string) []string {
	var tokens []string
	var b strings.Builder

	flush := func() {
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}

	runes := []rune(strings.ToLower(text))
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '.' && b.Len() > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i+1]) && isNumeric(b.String()):
			b.WriteRune(r)
		case r == '-' && b.Len() == 0 && i+1 < len(runes) && unicode.IsDigit(runes[i+1]):
			b.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

func isNumeric(s string) bool {
	for i, r := range s {
		if r == '-' && i == 0 {
			continue
		}
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
