package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// Common errors for Milvus operations
var (
	ErrInvalidDimension = errors.New("invalid vector dimension")
	ErrConnectionFailed = errors.New("failed to connect to Milvus")
	ErrInsertFailed     = errors.New("failed to insert records")
	ErrSearchFailed     = errors.New("failed to search vectors")
)

const (
	milvusIDField     = "id"
	milvusVectorField = "embedding"
)

// MilvusConfig holds configuration for the Milvus connection and its scratch collections
type MilvusConfig struct {
	Address          string // Milvus server address (e.g., "localhost:19530")
	CollectionPrefix string // Prefix for per-query scratch collections

	// HNSW index parameters
	M              int // HNSW M parameter (default: 16)
	EfConstruction int // HNSW efConstruction (default: 256)
	Ef             int // HNSW search ef (default: 64)
}

// DefaultMilvusConfig returns default configuration from environment variables
func DefaultMilvusConfig() MilvusConfig {
	address := os.Getenv("MILVUS_ADDRESS")
	if address == "" {
		address = "localhost:19530"
	}

	return MilvusConfig{
		Address:          address,
		CollectionPrefix: "survivalbot_scratch",
		M:                16,
		EfConstruction:   256,
		Ef:               64,
	}
}

// MilvusRanker ranks candidates with a Milvus HNSW index.
// Every Rank call loads the candidates into a fresh collection and drops it
// afterwards, so nothing outlives the query.
type MilvusRanker struct {
	client client.Client
	config MilvusConfig
	metric Metric
}

// NewMilvusRanker connects to Milvus
func NewMilvusRanker(ctx context.Context, config MilvusConfig, metric Metric) (*MilvusRanker, error) {
	c, err := client.NewGrpcClient(ctx, config.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return newMilvusRanker(c, config, metric), nil
}

func newMilvusRanker(c client.Client, config MilvusConfig, metric Metric) *MilvusRanker {
	if metric == "" {
		metric = MetricCosine
	}
	if config.CollectionPrefix == "" {
		config.CollectionPrefix = "survivalbot_scratch"
	}
	return &MilvusRanker{
		client: c,
		config: config,
		metric: metric,
	}
}

func (m *MilvusRanker) Metric() Metric {
	return m.metric
}

func (m *MilvusRanker) entityMetric() entity.MetricType {
	if m.metric == MetricEuclidean {
		return entity.L2
	}
	return entity.COSINE
}

// Rank inserts the candidates into a scratch collection and searches it
func (m *MilvusRanker) Rank(ctx context.Context, query []float32, candidates [][]float32, k int) ([]Match, error) {
	if err := validate(query, candidates, k); err != nil {
		return nil, err
	}
	if len(query) == 0 {
		return nil, ErrInvalidDimension
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	name := m.scratchName()
	if err := m.createCollection(ctx, name, len(query)); err != nil {
		return nil, err
	}
	defer func() {
		// the query context may already be cancelled
		_ = m.client.DropCollection(context.Background(), name)
	}()

	ids := make([]int64, len(candidates))
	for i := range candidates {
		ids[i] = int64(i)
	}
	columns := []entity.Column{
		entity.NewColumnInt64(milvusIDField, ids),
		entity.NewColumnFloatVector(milvusVectorField, len(query), candidates),
	}
	if _, err := m.client.Insert(ctx, name, "", columns...); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}
	if err := m.client.Flush(ctx, name, false); err != nil {
		return nil, fmt.Errorf("failed to flush data: %w", err)
	}
	if err := m.client.LoadCollection(ctx, name, false); err != nil {
		return nil, fmt.Errorf("failed to load collection: %w", err)
	}

	ef := m.config.Ef
	if ef < k {
		ef = k
	}
	sp, err := entity.NewIndexHNSWSearchParam(ef)
	if err != nil {
		return nil, fmt.Errorf("failed to create search params: %w", err)
	}

	results, err := m.client.Search(
		ctx,
		name,
		nil, // partition names
		"",
		[]string{milvusIDField},
		[]entity.Vector{entity.FloatVector(query)},
		milvusVectorField,
		m.entityMetric(),
		k,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	if len(results) == 0 {
		return []Match{}, nil
	}

	return m.matches(results[0])
}

func (m *MilvusRanker) matches(result client.SearchResult) ([]Match, error) {
	idCol, ok := result.IDs.(*entity.ColumnInt64)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected id column type", ErrSearchFailed)
	}
	ids := idCol.Data()

	matches := make([]Match, 0, result.ResultCount)
	for i := 0; i < result.ResultCount && i < len(ids) && i < len(result.Scores); i++ {
		score := result.Scores[i]
		if m.metric == MetricEuclidean {
			// L2 scores are squared distances
			score = float32(math.Sqrt(float64(score)))
		}
		matches = append(matches, Match{Index: int(ids[i]), Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].Index < matches[j].Index
		}
		return m.metric.Better(matches[i].Score, matches[j].Score)
	})
	return matches, nil
}

// createCollection creates and loads a scratch collection with an HNSW index
func (m *MilvusRanker) createCollection(ctx context.Context, name string, dimension int) error {
	schema := &entity.Schema{
		CollectionName: name,
		AutoID:         false,
		Fields: []*entity.Field{
			{
				Name:       milvusIDField,
				DataType:   entity.FieldTypeInt64,
				PrimaryKey: true,
			},
			{
				Name:     milvusVectorField,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", dimension),
				},
			},
		},
	}

	if err := m.client.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	idx, err := entity.NewIndexHNSW(m.entityMetric(), m.config.M, m.config.EfConstruction)
	if err != nil {
		_ = m.client.DropCollection(context.Background(), name)
		return fmt.Errorf("failed to create index config: %w", err)
	}
	if err := m.client.CreateIndex(ctx, name, milvusVectorField, idx, false); err != nil {
		_ = m.client.DropCollection(context.Background(), name)
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// scratchName returns a unique collection name; Milvus names allow only letters, digits and underscores.
func (m *MilvusRanker) scratchName() string {
	return m.config.CollectionPrefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "_")
}

// Close releases resources and closes the Milvus connection
func (m *MilvusRanker) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
