package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/vector"
	"github.com/hyperjump/kiku/pkg/utils"
)

var (
	// ErrStoreNotFound is returned when a store directory lacks one of its artifacts.
	ErrStoreNotFound = errors.New("store not found")
	// ErrStoreCorrupt is returned when the artifacts exist but disagree or cannot be decoded.
	ErrStoreCorrupt = errors.New("store corrupt")
)

// Store holds records paired with their embeddings. Position i of the index always
// belongs to records[i]. It is safe for concurrent use.
type Store struct {
	embedder embedding.Embedder
	logger   *zap.Logger

	mu       sync.RWMutex
	index    *vector.Index // nil until the first vectors arrive
	records  []models.Record
	snapshot uuid.UUID
}

// Option configures a Store.
type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = utils.OrNop(l) }
}

// NewStore creates an empty in-memory store that embeds through e.
func NewStore(e embedding.Embedder, opts ...Option) *Store {
	s := &Store{embedder: e, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add embeds every record's EmbeddingText and appends the pairs. Embedding happens
// before anything is appended, so a failed call leaves the store unchanged.
func (s *Store) Add(ctx context.Context, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	texts := make([]string, len(records))
	for i, r := range records {
		if strings.TrimSpace(r.EmbeddingText) == "" {
			return fmt.Errorf("record %d from %s has empty embedding text", i, r.SourceName)
		}
		texts[i] = r.EmbeddingText
	}

	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed records: %w", err)
	}
	if len(vecs) != len(records) {
		return fmt.Errorf("embedder returned %d vectors for %d records", len(vecs), len(records))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		idx, err := vector.New(len(vecs[0]))
		if err != nil {
			return err
		}
		s.index = idx
	}
	if err := s.index.Add(vecs); err != nil {
		return err
	}
	s.records = append(s.records, records...)
	s.logger.Debug("added records", zap.Int("count", len(records)), zap.Int("total", len(s.records)))
	return nil
}

// Search embeds query and returns up to k records by descending similarity.
func (s *Store) Search(ctx context.Context, query string, k int) ([]*models.SearchResult, error) {
	if s.Len() == 0 || k <= 0 {
		return []*models.SearchResult{}, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.SearchVector(vec, k)
}

// SearchVector returns up to k records closest to vec.
func (s *Store) SearchVector(vec []float32, k int) ([]*models.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return []*models.SearchResult{}, nil
	}
	hits, err := s.index.Search(vec, k)
	if err != nil {
		return nil, err
	}
	out := make([]*models.SearchResult, len(hits))
	for i, h := range hits {
		out[i] = &models.SearchResult{Record: s.records[h.Position], Score: h.Score}
	}
	return out, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records returns a copy of the stored records in insertion order.
func (s *Store) Records() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Record(nil), s.records...)
}

// Dimensions returns the vector dimension, or 0 for a store that has never held vectors.
func (s *Store) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.index == nil {
		return 0
	}
	return s.index.Dimensions()
}

// SnapshotID identifies the last save or load; uuid.Nil for a store never persisted.
func (s *Store) SnapshotID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}
