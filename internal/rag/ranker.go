package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Common errors for ranking operations
var (
	ErrNoCandidates      = errors.New("no candidates to rank")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrInvalidTopK       = errors.New("top-k must be positive")
	ErrUnknownMetric     = errors.New("unknown similarity metric")
)

// DefaultTopK is the number of context sentences sent to the LLM.
const DefaultTopK = 3

// Metric is a similarity policy.
type Metric string

const (
	// MetricCosine ranks by cosine similarity, highest first.
	MetricCosine Metric = "cosine"
	// MetricEuclidean ranks by euclidean distance, nearest first.
	MetricEuclidean Metric = "euclidean"
)

// ParseMetric parses a metric name. The empty string selects cosine.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(MetricCosine):
		return MetricCosine, nil
	case string(MetricEuclidean), "l2":
		return MetricEuclidean, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownMetric, s)
	}
}

// Better reports whether score a ranks ahead of score b.
func (m Metric) Better(a, b float32) bool {
	if m == MetricEuclidean {
		return a < b
	}
	return a > b
}

// Score compares two vectors of equal length under the metric.
func (m Metric) Score(a, b []float32) float32 {
	if m == MetricEuclidean {
		return euclidean(a, b)
	}
	return cosine(a, b)
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func euclidean(a, b []float32) float32 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return float32(math.Sqrt(sum))
}

// validate checks the shared preconditions of every ranker.
func validate(query []float32, candidates [][]float32, k int) error {
	if k <= 0 {
		return fmt.Errorf("%w, got %d", ErrInvalidTopK, k)
	}
	if len(candidates) == 0 {
		return ErrNoCandidates
	}
	for i, c := range candidates {
		if len(c) != len(query) {
			return fmt.Errorf("%w: candidate %d has %d dimensions, query has %d", ErrDimensionMismatch, i, len(c), len(query))
		}
	}
	return nil
}

// MemoryRanker scores every candidate in process.
type MemoryRanker struct {
	metric Metric
}

// NewMemoryRanker creates an in-process ranker.
func NewMemoryRanker(metric Metric) *MemoryRanker {
	if metric == "" {
		metric = MetricCosine
	}
	return &MemoryRanker{metric: metric}
}

func (r *MemoryRanker) Metric() Metric {
	return r.metric
}

// Rank scores all candidates and keeps the best k. Ties keep input order.
func (r *MemoryRanker) Rank(ctx context.Context, query []float32, candidates [][]float32, k int) ([]Match, error) {
	if err := validate(query, candidates, k); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches := make([]Match, len(candidates))
	for i, c := range candidates {
		matches[i] = Match{Index: i, Score: r.metric.Score(query, c)}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return r.metric.Better(matches[i].Score, matches[j].Score)
	})

	if k > len(matches) {
		k = len(matches)
	}
	return matches[:k], nil
}

func (r *MemoryRanker) Close() error {
	return nil
}
