package rag

import (
	"context"
	"fmt"
)

// Retriever selects the context sentences most similar to a query.
type Retriever struct {
	embedder Embedder
	ranker   Ranker
}

// NewRetriever creates a new Retriever instance.
func NewRetriever(embedder Embedder, ranker Ranker) (*Retriever, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder cannot be nil")
	}
	if ranker == nil {
		return nil, fmt.Errorf("ranker cannot be nil")
	}

	return &Retriever{
		embedder: embedder,
		ranker:   ranker,
	}, nil
}

// Embedder returns the embedder used for contexts and queries.
func (r *Retriever) Embedder() Embedder {
	return r.embedder
}

// Ranker returns the ranker used to select contexts.
func (r *Retriever) Ranker() Ranker {
	return r.ranker
}

// Retrieve embeds the contexts and the query together and returns the topK
// nearest contexts, best first. Context embeddings are recomputed on every call.
func (r *Retriever) Retrieve(ctx context.Context, query string, contexts []string, topK int) ([]ContextChunk, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidTopK, topK)
	}
	if len(contexts) == 0 {
		return nil, ErrNoCandidates
	}

	texts := make([]string, 0, len(contexts)+1)
	texts = append(texts, contexts...)
	texts = append(texts, query)

	records, err := r.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed contexts: %w", err)
	}
	if len(records) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbeddingFailed, len(texts), len(records))
	}

	vectors := make([][]float32, len(texts))
	for _, rec := range records {
		if rec.Index < 0 || rec.Index >= len(texts) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", ErrEmbeddingFailed, rec.Index)
		}
		vectors[rec.Index] = rec.Embedding
	}

	matches, err := r.ranker.Rank(ctx, vectors[len(contexts)], vectors[:len(contexts)], topK)
	if err != nil {
		return nil, fmt.Errorf("failed to rank contexts: %w", err)
	}

	chunks := make([]ContextChunk, len(matches))
	for i, m := range matches {
		if m.Index < 0 || m.Index >= len(contexts) {
			return nil, fmt.Errorf("ranker returned index %d for %d contexts", m.Index, len(contexts))
		}
		chunks[i] = ContextChunk{
			Index: m.Index,
			Text:  contexts[m.Index],
			Score: m.Score,
		}
	}
	return chunks, nil
}

// Texts returns the text of each chunk in order.
func Texts(chunks []ContextChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
