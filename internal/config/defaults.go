package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = ".kiku/store"
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "bge-m3"
	}
	if cfg.Embedding.URL == "" && cfg.Embedding.Provider == "ollama" {
		cfg.Embedding.URL = "http://localhost:11434"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1024
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Embedding.Concurrency == 0 {
		cfg.Embedding.Concurrency = 1
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 5 * time.Minute
	}

	if cfg.Transcription.Provider == "" {
		cfg.Transcription.Provider = "sidecar"
	}
	if cfg.Transcription.Model == "" {
		cfg.Transcription.Model = "whisper-1"
	}
	if cfg.Transcription.APIKeyEnv == "" {
		cfg.Transcription.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Transcription.Timeout == 0 {
		cfg.Transcription.Timeout = 10 * time.Minute
	}

	if cfg.Ingest.ContextWindow == nil {
		w := 1
		cfg.Ingest.ContextWindow = &w
	}
	if cfg.Ingest.Workers == 0 {
		cfg.Ingest.Workers = 1
	}

	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 5
	}
	if cfg.Search.ScoreThreshold == nil {
		th := 0.35
		cfg.Search.ScoreThreshold = &th
	}
	if cfg.Search.MinWords == nil {
		n := 6
		cfg.Search.MinWords = &n
	}

	if cfg.Answer.URL == "" {
		cfg.Answer.URL = "http://localhost:11434"
	}
	if cfg.Answer.Model == "" {
		cfg.Answer.Model = "llama3.1"
	}
	if cfg.Answer.Timeout == 0 {
		cfg.Answer.Timeout = 5 * time.Minute
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 2 * time.Second
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
