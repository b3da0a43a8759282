package main

import (
	"fmt"

	"github.com/hyperjump/kiku/internal/answer"
	"github.com/hyperjump/kiku/internal/config"
	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/extract"
	"github.com/hyperjump/kiku/internal/indexer"
	"github.com/hyperjump/kiku/internal/search"
	"go.uber.org/zap"
)

// Components holds initialized services.
type Components struct {
	Embedder embedding.Embedder
	Router   *extract.Router
	Indexer  *indexer.Indexer
	Engine   *search.Engine
	Answerer *answer.Answerer
}

func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func newEmbedder(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, error) {
	provider, err := embedding.NewProvider(embedding.ProviderConfig{
		Name:       cfg.Embedding.Provider,
		URL:        cfg.Embedding.URL,
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey(),
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	retry := embedding.DefaultRetryConfig()
	retry.MaxRetries = cfg.Embedding.MaxRetriesOrDefault()

	opts := []embedding.Option{
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithConcurrency(cfg.Embedding.Concurrency),
		embedding.WithTimeout(cfg.Embedding.Timeout),
		embedding.WithRetry(retry),
		embedding.WithDimensions(cfg.Embedding.Dimensions),
		embedding.WithLogger(logger),
	}
	if cfg.Embedding.CacheSize > 0 {
		cache, err := embedding.NewCache(cfg.Embedding.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding cache: %w", err)
		}
		opts = append(opts, embedding.WithCache(cache))
	}
	return embedding.NewClient(provider, opts...), nil
}

func newTranscriber(cfg config.TranscriptionConfig) (extract.Transcriber, error) {
	switch cfg.Provider {
	case "", "sidecar":
		return extract.NewSidecarTranscriber(cfg.TranscriptDir), nil
	case "whisper":
		return extract.NewWhisperTranscriber(extract.WhisperConfig{
			APIKey:   cfg.APIKey(),
			BaseURL:  cfg.URL,
			Model:    cfg.Model,
			Language: cfg.Language,
			Timeout:  cfg.Timeout,
		}), nil
	}
	return nil, fmt.Errorf("unknown transcription provider %q (want sidecar or whisper)", cfg.Provider)
}

func newRouter(cfg *config.Config, logger *zap.Logger) (*extract.Router, error) {
	transcriber, err := newTranscriber(cfg.Transcription)
	if err != nil {
		return nil, err
	}
	router, err := extract.NewRouter(
		extract.WithTranscriber(transcriber),
		extract.WithContextWindow(cfg.Ingest.ContextWindowOrDefault()),
		extract.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize extractor: %w", err)
	}
	return router, nil
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return nil, err
	}
	router, err := newRouter(cfg, logger)
	if err != nil {
		_ = embedder.Close()
		return nil, err
	}

	idx := indexer.NewIndexer(router, embedder, cfg.Store.Path,
		indexer.WithWorkers(cfg.Ingest.Workers),
		indexer.WithIgnore(cfg.Ingest.Ignore),
		indexer.WithLogger(logger))

	engine := search.NewEngine(cfg.Store.Path, embedder,
		search.WithDefaults(cfg.Search.TopK, *cfg.Search.ScoreThreshold, *cfg.Search.MinWords),
		search.WithLogger(logger))

	chat := answer.NewOllamaChat(cfg.Answer.URL, cfg.Answer.Model, cfg.Answer.Timeout)

	logger.Debug("components initialized",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("transcription", cfg.Transcription.Provider))

	return &Components{
		Embedder: embedder,
		Router:   router,
		Indexer:  idx,
		Engine:   engine,
		Answerer: answer.NewAnswerer(chat, logger),
	}, nil
}
