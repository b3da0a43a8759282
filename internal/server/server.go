// Package server provides the HTTP API for kiku.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kiku/internal/config"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/pkg/utils"
	"go.uber.org/zap"
)

// requestTimeout bounds a single API call; ask waits on the chat model.
const requestTimeout = 5 * time.Minute

// Retriever runs a retrieval query against the persisted store.
type Retriever interface {
	Retrieve(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error)
}

// AnswerService turns retrieved results into an answer.
type AnswerService interface {
	Answer(ctx context.Context, question string, results []*models.SearchResult) (string, error)
}

// WatchService reports the directories being watched. Optional.
type WatchService interface {
	Directories() []string
}

// Server is the HTTP server for the kiku API.
type Server struct {
	retriever Retriever
	answerer  AnswerService
	watch     WatchService
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. answerer and watch may be nil.
func NewServer(retriever Retriever, answerer AnswerService, watch WatchService, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		retriever: retriever,
		answerer:  answerer,
		watch:     watch,
		config:    cfg,
		logger:    utils.OrNop(logger),
	}
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", s.handleStatus)
		r.Post("/search", s.handleSearch)
		r.Post("/ask", s.handleAsk)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
