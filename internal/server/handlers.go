package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hyperjump/kiku/internal/config"
	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/storage"
	"github.com/hyperjump/kiku/pkg/utils"
	"go.uber.org/zap"
)

// StatusResponse describes the persisted store and the active configuration.
type StatusResponse struct {
	Indexed bool          `json:"indexed"`
	Store   *storage.Info `json:"store,omitempty"`
	Watch   []string      `json:"watch_directories,omitempty"`
	Config  StatusConfig  `json:"config"`
}

// StatusConfig is the subset of configuration reported by status.
type StatusConfig struct {
	StorePath          string  `json:"store_path"`
	EmbeddingProvider  string  `json:"embedding_provider"`
	EmbeddingModel     string  `json:"embedding_model"`
	EmbeddingDimension int     `json:"embedding_dimensions"`
	TopK               int     `json:"top_k"`
	ScoreThreshold     float64 `json:"score_threshold"`
	MinWords           int     `json:"min_words"`
	AnswerModel        string  `json:"answer_model"`
}

// NewStatus reports on the store at cfg.Store.Path. A missing store is not an
// error; Indexed is false instead.
func NewStatus(cfg *config.Config) (*StatusResponse, error) {
	resp := &StatusResponse{Config: StatusConfig{
		StorePath:          cfg.Store.Path,
		EmbeddingProvider:  cfg.Embedding.Provider,
		EmbeddingModel:     cfg.Embedding.Model,
		EmbeddingDimension: cfg.Embedding.Dimensions,
		TopK:               cfg.Search.TopK,
		AnswerModel:        cfg.Answer.Model,
	}}
	if cfg.Search.ScoreThreshold != nil {
		resp.Config.ScoreThreshold = *cfg.Search.ScoreThreshold
	}
	if cfg.Search.MinWords != nil {
		resp.Config.MinWords = *cfg.Search.MinWords
	}
	info, err := storage.Stat(cfg.Store.Path)
	if errors.Is(err, storage.ErrStoreNotFound) {
		return resp, nil
	}
	if err != nil {
		return nil, err
	}
	resp.Indexed = true
	resp.Store = &info
	return resp, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := NewStatus(s.config)
	if err != nil {
		s.logger.Error("status failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.watch != nil {
		resp.Watch = s.watch.Directories()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", utils.Truncate(query.Query, 80)), zap.Int("top_k", query.TopK))
	response, err := s.retriever.Retrieve(r.Context(), &query)
	if err != nil {
		s.respondFailure(w, "search", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.answerer == nil {
		s.respondError(w, http.StatusNotImplemented, "answer generation not configured")
		return
	}
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	start := time.Now()
	retrieved, err := s.retriever.Retrieve(r.Context(), &query)
	if err != nil {
		s.respondFailure(w, "ask", err)
		return
	}
	answer, err := s.answerer.Answer(r.Context(), retrieved.Query, retrieved.Results)
	if err != nil {
		s.logger.Error("answer failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	s.logger.Debug("answered", zap.Int("sources", len(retrieved.Results)), zap.Duration("took", time.Since(start)))
	s.respondJSON(w, http.StatusOK, &models.AnswerResponse{
		Query:   retrieved.Query,
		Answer:  answer,
		Sources: retrieved.Results,
	})
}

// respondFailure maps retrieval errors to status codes.
func (s *Server) respondFailure(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidQuery):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrStoreNotFound):
		status = http.StatusServiceUnavailable
	case errors.Is(err, embedding.ErrService):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
