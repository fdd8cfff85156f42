// Package rag embeds context sentences and selects the ones nearest to a query.
package rag

import "context"

// ContextChunk represents a retrieved context with its similarity score
// Index points back into the context list the chunk was selected from
type ContextChunk struct {
	Index int     `json:"index"`
	Text  string  `json:"text"`
	Score float32 `json:"score"` // cosine similarity or euclidean distance, depending on the metric
}

// Match is one ranked candidate
type Match struct {
	Index int     `json:"index"`
	Score float32 `json:"score"`
}

// Ranker selects the candidates nearest to a query vector
type Ranker interface {
	// Rank returns exactly min(k, len(candidates)) matches with distinct indices, best first
	Rank(ctx context.Context, query []float32, candidates [][]float32, k int) ([]Match, error)

	// Metric reports the similarity policy used for ranking
	Metric() Metric

	// Close releases resources held by the ranker
	Close() error
}
