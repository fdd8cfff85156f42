package rag

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// mockEmbedder implements Embedder interface for testing
type mockEmbedder struct {
	embedFunc func(ctx context.Context, texts []string) ([]EmbeddingRecord, error)
	calls     int
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
	m.calls++
	if m.embedFunc != nil {
		return m.embedFunc(ctx, texts)
	}
	// Default: one-hot on the first byte so identical leading letters match
	records := make([]EmbeddingRecord, len(texts))
	for i, text := range texts {
		embedding := make([]float32, 3)
		if len(text) > 0 {
			embedding[int(text[0])%3] = 1
		}
		records[i] = EmbeddingRecord{
			Text:      text,
			Embedding: embedding,
			Index:     i,
			Model:     "mock",
		}
	}
	return records, nil
}

func (m *mockEmbedder) GetModel() string  { return "mock" }
func (m *mockEmbedder) GetDimension() int { return 3 }

// mockRanker records what it was asked to rank
type mockRanker struct {
	rankFunc   func(query []float32, candidates [][]float32, k int) ([]Match, error)
	query      []float32
	candidates [][]float32
}

func (m *mockRanker) Rank(ctx context.Context, query []float32, candidates [][]float32, k int) ([]Match, error) {
	m.query = query
	m.candidates = candidates
	if m.rankFunc != nil {
		return m.rankFunc(query, candidates, k)
	}
	return NewMemoryRanker(MetricCosine).Rank(ctx, query, candidates, k)
}

func (m *mockRanker) Metric() Metric { return MetricCosine }
func (m *mockRanker) Close() error   { return nil }

func TestNewRetriever(t *testing.T) {
	if _, err := NewRetriever(nil, &mockRanker{}); err == nil {
		t.Error("expected error for nil embedder")
	}
	if _, err := NewRetriever(&mockEmbedder{}, nil); err == nil {
		t.Error("expected error for nil ranker")
	}
	r, err := NewRetriever(&mockEmbedder{}, &mockRanker{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Embedder().GetModel() != "mock" {
		t.Errorf("expected mock embedder, got %s", r.Embedder().GetModel())
	}
	if r.Ranker().Metric() != MetricCosine {
		t.Errorf("expected cosine ranker, got %s", r.Ranker().Metric())
	}
}

func TestRetrieve_QueryIsEmbeddedLast(t *testing.T) {
	embedder := &mockEmbedder{}
	ranker := &mockRanker{}
	r, _ := NewRetriever(embedder, ranker)

	contexts := []string{"a", "b", "c", "d"}
	chunks, err := r.Retrieve(context.Background(), "b?", contexts, 2)
	if err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if embedder.calls != 1 {
		t.Errorf("expected one embedding call, got %d", embedder.calls)
	}
	if len(ranker.candidates) != len(contexts) {
		t.Errorf("expected %d candidates, got %d", len(contexts), len(ranker.candidates))
	}
	// "b" and the query share a first letter.
	if chunks[0].Text != "b" || chunks[0].Index != 1 {
		t.Errorf("expected b first, got %+v", chunks[0])
	}
	if len(chunks) != 2 {
		t.Errorf("expected 2 chunks, got %d", len(chunks))
	}
}

func TestRetrieve_RecomputesEveryCall(t *testing.T) {
	embedder := &mockEmbedder{}
	r, _ := NewRetriever(embedder, &mockRanker{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.Retrieve(ctx, "q", []string{"x", "y"}, DefaultTopK); err != nil {
			t.Fatalf("Retrieve failed: %v", err)
		}
	}
	if embedder.calls != 3 {
		t.Errorf("expected 3 embedding calls, got %d", embedder.calls)
	}
}

func TestRetrieve_TwoContexts(t *testing.T) {
	contexts := []string{"Monster m1 at (1,2)", "Survivor s1 in D1 (3,4)"}
	r, err := NewRetriever(NewLocalEmbedder(0, 0), NewMemoryRanker(MetricEuclidean))
	if err != nil {
		t.Fatalf("NewRetriever failed: %v", err)
	}

	for _, query := range []string{"where are the monsters?", "survivors", "", "food and water"} {
		t.Run(query, func(t *testing.T) {
			chunks, err := r.Retrieve(context.Background(), query, contexts, DefaultTopK)
			if err != nil {
				t.Fatalf("Retrieve failed: %v", err)
			}
			if len(chunks) != 2 {
				t.Fatalf("expected 2 chunks, got %d", len(chunks))
			}
			seen := map[string]bool{}
			for _, c := range chunks {
				if seen[c.Text] {
					t.Errorf("duplicate context %q", c.Text)
				}
				seen[c.Text] = true
				if c.Text != contexts[c.Index] {
					t.Errorf("chunk text %q does not match context %d", c.Text, c.Index)
				}
			}
		})
	}
}

func TestRetrieve_PlacesRecordsByIndex(t *testing.T) {
	embedder := &mockEmbedder{
		embedFunc: func(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
			// Returned in reverse order.
			records := make([]EmbeddingRecord, len(texts))
			for i := range texts {
				j := len(texts) - 1 - i
				records[i] = EmbeddingRecord{Text: texts[j], Embedding: []float32{float32(j)}, Index: j}
			}
			return records, nil
		},
	}
	ranker := &mockRanker{
		rankFunc: func(query []float32, candidates [][]float32, k int) ([]Match, error) {
			return []Match{{Index: 0, Score: 1}}, nil
		},
	}
	r, _ := NewRetriever(embedder, ranker)

	if _, err := r.Retrieve(context.Background(), "q", []string{"a", "b"}, 1); err != nil {
		t.Fatalf("Retrieve failed: %v", err)
	}
	if diff := cmp.Diff([]float32{2}, ranker.query); diff != "" {
		t.Errorf("query vector mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][]float32{{0}, {1}}, ranker.candidates); diff != "" {
		t.Errorf("candidate vectors mismatch (-want +got):\n%s", diff)
	}
}

func TestRetrieve_Errors(t *testing.T) {
	ctx := context.Background()
	embedErr := fmt.Errorf("%w: upstream down", ErrEmbeddingFailed)

	tests := []struct {
		name     string
		embedder *mockEmbedder
		ranker   *mockRanker
		contexts []string
		topK     int
		wantErr  error
	}{
		{
			name:     "no contexts",
			embedder: &mockEmbedder{},
			ranker:   &mockRanker{},
			topK:     3,
			wantErr:  ErrNoCandidates,
		},
		{
			name:     "invalid topK",
			embedder: &mockEmbedder{},
			ranker:   &mockRanker{},
			contexts: []string{"a"},
			topK:     0,
			wantErr:  ErrInvalidTopK,
		},
		{
			name: "embedding failure",
			embedder: &mockEmbedder{embedFunc: func(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
				return nil, embedErr
			}},
			ranker:   &mockRanker{},
			contexts: []string{"a"},
			topK:     3,
			wantErr:  ErrEmbeddingFailed,
		},
		{
			name: "short embedding response",
			embedder: &mockEmbedder{embedFunc: func(ctx context.Context, texts []string) ([]EmbeddingRecord, error) {
				return []EmbeddingRecord{{Index: 0, Embedding: []float32{1}}}, nil
			}},
			ranker:   &mockRanker{},
			contexts: []string{"a", "b"},
			topK:     3,
			wantErr:  ErrEmbeddingFailed,
		},
		{
			name:     "ranker failure",
			embedder: &mockEmbedder{},
			ranker: &mockRanker{rankFunc: func(query []float32, candidates [][]float32, k int) ([]Match, error) {
				return nil, ErrDimensionMismatch
			}},
			contexts: []string{"a"},
			topK:     3,
			wantErr:  ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := NewRetriever(tt.embedder, tt.ranker)
			_, err := r.Retrieve(ctx, "query", tt.contexts, tt.topK)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestTexts(t *testing.T) {
	chunks := []ContextChunk{{Index: 1, Text: "b"}, {Index: 0, Text: "a"}}
	if diff := cmp.Diff([]string{"b", "a"}, Texts(chunks)); diff != "" {
		t.Errorf("Texts mismatch (-want +got):\n%s", diff)
	}
}
