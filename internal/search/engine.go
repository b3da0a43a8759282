// Package search runs retrieval against the persisted store.
package search

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/storage"
	"github.com/hyperjump/kiku/pkg/utils"
)

// Defaults applied to queries that leave fields unset.
const (
	DefaultTopK           = 5
	DefaultScoreThreshold = 0.35
	DefaultMinWords       = 6
)

// Engine answers retrieval queries from the store saved in a directory.
type Engine struct {
	storeDir  string
	embedder  embedding.Embedder
	topK      int
	threshold float64
	minWords  int
	logger    *zap.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDefaults sets the values used when a query leaves top_k, score_threshold or min_words unset.
func WithDefaults(topK int, threshold float64, minWords int) EngineOption {
	return func(e *Engine) {
		e.topK = topK
		e.threshold = threshold
		e.minWords = minWords
	}
}

func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) { e.logger = utils.OrNop(l) }
}

// NewEngine creates an engine that reads the store in storeDir.
func NewEngine(storeDir string, embedder embedding.Embedder, opts ...EngineOption) *Engine {
	e := &Engine{
		storeDir:  storeDir,
		embedder:  embedder,
		topK:      DefaultTopK,
		threshold: DefaultScoreThreshold,
		minWords:  DefaultMinWords,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SearchVectorDB loads the current snapshot, embeds query and returns up to topK results
// whose score is at least threshold, by descending score. A store that has not been
// built yet is storage.ErrStoreNotFound.
func (e *Engine) SearchVectorDB(ctx context.Context, query string, topK int, threshold float64) ([]*models.SearchResult, error) {
	store, err := storage.Load(e.storeDir, e.embedder, storage.WithLogger(e.logger))
	if err != nil {
		return nil, err
	}
	results, err := store.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	return FilterScore(results, threshold), nil
}

// FilterScore keeps results scoring at least threshold, preserving order.
func FilterScore(results []*models.SearchResult, threshold float64) []*models.SearchResult {
	out := make([]*models.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Score >= threshold {
			out = append(out, r)
		}
	}
	return out
}

// FilterMinWords keeps results whose embedding text has at least n words, preserving order.
func FilterMinWords(results []*models.SearchResult, n int) []*models.SearchResult {
	out := make([]*models.SearchResult, 0, len(results))
	for _, r := range results {
		if r.WordCount() >= n {
			out = append(out, r)
		}
	}
	return out
}

// Retrieve validates q, searches, and applies the minimum-word filter. An empty
// final list is reported through NoRelevantResults rather than an error.
func (e *Engine) Retrieve(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	start := time.Now()
	if err := q.Validate(e.topK, e.threshold, e.minWords); err != nil {
		return nil, err
	}
	results, err := e.SearchVectorDB(ctx, q.Query, q.TopK, *q.ScoreThreshold)
	if err != nil {
		return nil, err
	}
	results = FilterMinWords(results, *q.MinWords)

	resp := &models.SearchResponse{
		Query:             q.Query,
		Results:           results,
		Total:             len(results),
		NoRelevantResults: len(results) == 0,
		QueryTime:         time.Since(start).Milliseconds(),
	}
	e.logger.Debug("retrieved",
		zap.String("query", utils.Truncate(q.Query, 80)),
		zap.Int("results", resp.Total),
		zap.Int64("ms", resp.QueryTime))
	return resp, nil
}
