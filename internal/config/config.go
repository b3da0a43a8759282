// Package config provides configuration loading and structs for kiku.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug         bool                `yaml:"debug"`
	Server        ServerConfig        `yaml:"server"`
	Store         StoreConfig         `yaml:"store"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Ingest        IngestConfig        `yaml:"ingest"`
	Search        SearchConfig        `yaml:"search"`
	Answer        AnswerConfig        `yaml:"answer"`
	Watch         WatchConfig         `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig locates the persisted index and metadata.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// EmbeddingConfig selects and tunes the embedding service.
type EmbeddingConfig struct {
	Provider    string        `yaml:"provider"` // ollama or openai
	Model       string        `yaml:"model"`
	URL         string        `yaml:"url"`
	APIKeyEnv   string        `yaml:"api_key_env"`
	Dimensions  int           `yaml:"dimensions"`
	BatchSize   int           `yaml:"batch_size"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  *int          `yaml:"max_retries"`
	CacheSize   int           `yaml:"cache_size"` // 0 disables the cache
}

// APIKey reads the key from the environment variable named by APIKeyEnv.
func (e EmbeddingConfig) APIKey() string { return lookupKey(e.APIKeyEnv) }

// MaxRetriesOrDefault returns MaxRetries, or 2 when unset.
func (e EmbeddingConfig) MaxRetriesOrDefault() int {
	if e.MaxRetries != nil {
		return *e.MaxRetries
	}
	return 2
}

// TranscriptionConfig selects how media files become timestamped segments.
type TranscriptionConfig struct {
	Provider      string        `yaml:"provider"` // sidecar or whisper
	Model         string        `yaml:"model"`
	URL           string        `yaml:"url"`
	APIKeyEnv     string        `yaml:"api_key_env"`
	Language      string        `yaml:"language"`
	TranscriptDir string        `yaml:"transcript_dir"`
	Timeout       time.Duration `yaml:"timeout"`
}

// APIKey reads the key from the environment variable named by APIKeyEnv.
func (t TranscriptionConfig) APIKey() string { return lookupKey(t.APIKeyEnv) }

// IngestConfig tunes extraction.
type IngestConfig struct {
	ContextWindow *int     `yaml:"context_window"`
	Workers       int      `yaml:"workers"`
	Ignore        []string `yaml:"ignore"`
}

// ContextWindowOrDefault returns ContextWindow, or 1 when unset. Zero is a valid setting.
func (i IngestConfig) ContextWindowOrDefault() int {
	if i.ContextWindow != nil {
		return *i.ContextWindow
	}
	return 1
}

// SearchConfig holds retrieval defaults.
type SearchConfig struct {
	TopK           int      `yaml:"top_k"`
	ScoreThreshold *float64 `yaml:"score_threshold"`
	MinWords       *int     `yaml:"min_words"`
}

// AnswerConfig configures the chat model used by ask.
type AnswerConfig struct {
	URL     string        `yaml:"url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string      `yaml:"directories"`
	Debounce    time.Duration `yaml:"debounce"`
	Recursive   *bool         `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

func lookupKey(env string) string {
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}

// Load reads and parses the config file at path, applies defaults, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	cfg.ExpandPaths(filepath.Dir(path))
	return &cfg, nil
}

// Default returns a config with every default applied and paths resolved against baseDir.
func Default(baseDir string) *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.ExpandPaths(baseDir)
	return cfg
}

// ExpandPaths resolves every path setting with expandPath.
func (c *Config) ExpandPaths(configDir string) {
	c.Store.Path = expandPath(c.Store.Path, configDir)
	if c.Transcription.TranscriptDir != "" {
		c.Transcription.TranscriptDir = expandPath(c.Transcription.TranscriptDir, configDir)
	}
	for i := range c.Watch.Directories {
		c.Watch.Directories[i] = expandPath(c.Watch.Directories[i], configDir)
	}
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir,
// "~/" is the home directory, and other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	path = strings.TrimPrefix(path, "~/")
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
