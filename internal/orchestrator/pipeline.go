// Package orchestrator wires fetching, formatting, retrieval and answer
// generation into the end-to-end question answering pipeline.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Yates-Labs/survivalbot/internal/answer"
	"github.com/Yates-Labs/survivalbot/internal/config"
	"github.com/Yates-Labs/survivalbot/internal/rag"
	"github.com/Yates-Labs/survivalbot/internal/survival"
)

var (
	ErrNoContext = errors.New("no context available")
)

// Knowledge is the formatted context built from one snapshot.
type Knowledge struct {
	Snapshot *survival.Snapshot
	Contexts []string
}

// Result is the outcome of one question.
type Result struct {
	ID      string             `json:"id"`
	Query   string             `json:"query"`
	Context []rag.ContextChunk `json:"context"`
	Answer  *answer.Answer     `json:"answer"`
}

// Pipeline orchestrates end-to-end question answering.
type Pipeline struct {
	fetcher   *survival.Fetcher
	retriever *rag.Retriever
	generator *answer.Generator
	topK      int
	log       *slog.Logger
}

// NewPipeline builds every component from cfg. The embedder and ranker are
// created once here and reused for every question.
func NewPipeline(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Pipeline, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	embedder, err := rag.NewEmbedder(cfg.EmbedderConfig(os.Getenv))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	ranker, err := newRanker(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ranker: %w", err)
	}

	retriever, err := rag.NewRetriever(embedder, ranker)
	if err != nil {
		ranker.Close()
		return nil, fmt.Errorf("failed to create retriever: %w", err)
	}

	llmConfig := cfg.LLMConfig(os.Getenv)
	llm, err := answer.NewLLM(llmConfig)
	if err != nil {
		ranker.Close()
		return nil, fmt.Errorf("failed to create LLM: %w", err)
	}

	fetcher := survival.NewFetcher(cfg.Endpoints(), cfg.Sources.Timeout, log.With(slog.String("component", "fetcher")))

	log.Debug("pipeline ready",
		slog.String("embedder", embedder.GetModel()),
		slog.String("metric", string(ranker.Metric())),
		slog.String("backend", cfg.Ranking.Backend),
		slog.String("llm", llmConfig.Model))

	return NewPipelineFromParts(fetcher, retriever, answer.NewGenerator(llm, llmConfig), cfg.Ranking.TopK, log), nil
}

// NewPipelineFromParts assembles a pipeline from prebuilt components.
func NewPipelineFromParts(fetcher *survival.Fetcher, retriever *rag.Retriever, generator *answer.Generator, topK int, log *slog.Logger) *Pipeline {
	if topK <= 0 {
		topK = rag.DefaultTopK
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		fetcher:   fetcher,
		retriever: retriever,
		generator: generator,
		topK:      topK,
		log:       log,
	}
}

func newRanker(ctx context.Context, cfg *config.Config) (rag.Ranker, error) {
	metric := cfg.Metric()
	if strings.EqualFold(cfg.Ranking.Backend, config.BackendMilvus) {
		return rag.NewMilvusRanker(ctx, cfg.MilvusConfig(), metric)
	}
	return rag.NewMemoryRanker(metric), nil
}

// TopK returns the default number of context sentences per question.
func (p *Pipeline) TopK() int {
	return p.topK
}

// LoadContext fetches a fresh snapshot and formats it. Fetch failures only add
// warnings to the snapshot; a malformed record fails the whole load.
func (p *Pipeline) LoadContext(ctx context.Context) (*Knowledge, error) {
	snap := p.fetcher.FetchAll(ctx)
	contexts, err := survival.FormatSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to format context: %w", err)
	}
	p.log.Info("context loaded",
		slog.Int("contexts", len(contexts)),
		slog.Int("warnings", len(snap.Warnings)))
	return &Knowledge{Snapshot: snap, Contexts: contexts}, nil
}

// Ask answers query from the given knowledge. topK <= 0 uses the pipeline default.
// Retrieval errors are returned; completion errors are folded into the answer text.
func (p *Pipeline) Ask(ctx context.Context, k *Knowledge, query string, topK int) (*Result, error) {
	if k == nil || len(k.Contexts) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoContext, rag.ErrNoCandidates)
	}
	if topK <= 0 {
		topK = p.topK
	}

	id := uuid.NewString()
	log := p.log.With(slog.String("id", id))
	start := time.Now()

	chunks, err := p.retriever.Retrieve(ctx, query, k.Contexts, topK)
	if err != nil {
		log.Error("retrieval failed", slog.Any("error", err))
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	log.Debug("context selected", slog.Any("context", rag.Texts(chunks)))

	a := p.generator.Generate(ctx, query, rag.Texts(chunks))
	if a.Failed {
		log.Warn("completion failed", slog.Any("error", a.Err))
	}
	log.Info("question answered",
		slog.Int("context", len(chunks)),
		slog.Bool("failed", a.Failed),
		slog.Duration("took", time.Since(start)))

	return &Result{
		ID:      id,
		Query:   query,
		Context: chunks,
		Answer:  a,
	}, nil
}

// AskFresh fetches a new snapshot and answers query from it.
func (p *Pipeline) AskFresh(ctx context.Context, query string, topK int) (*Result, error) {
	k, err := p.LoadContext(ctx)
	if err != nil {
		return nil, err
	}
	return p.Ask(ctx, k, query, topK)
}

// Close releases resources held by the pipeline.
func (p *Pipeline) Close() error {
	if p.retriever != nil && p.retriever.Ranker() != nil {
		return p.retriever.Ranker().Close()
	}
	return nil
}
