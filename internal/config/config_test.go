package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
store:
  path: "./index"
embedding:
  provider: openai
  model: text-embedding-3-small
  dimensions: 1536
  timeout: 30s
search:
  score_threshold: 0
ingest:
  context_window: 0
  ignore: ["*.tmp"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Store.Path != filepath.Join(dir, "index") {
		t.Errorf("store path = %s", cfg.Store.Path)
	}
	if cfg.Embedding.Provider != "openai" || cfg.Embedding.Dimensions != 1536 || cfg.Embedding.Timeout != 30*time.Second {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Embedding.URL != "" {
		t.Errorf("openai provider should not get the ollama url, got %q", cfg.Embedding.URL)
	}
	if *cfg.Search.ScoreThreshold != 0 {
		t.Errorf("explicit zero threshold replaced: %v", *cfg.Search.ScoreThreshold)
	}
	if cfg.Ingest.ContextWindowOrDefault() != 0 {
		t.Errorf("explicit zero window replaced: %d", cfg.Ingest.ContextWindowOrDefault())
	}
	if len(cfg.Ingest.Ignore) != 1 {
		t.Errorf("ignore = %v", cfg.Ingest.Ignore)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("debug: true\n"), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
}

func TestLoad_errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.yaml")
	_ = os.WriteFile(bad, []byte("server: [unclosed"), 0600)
	if _, err := Load(bad); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
store:
  path: "./data/store"
transcription:
  transcript_dir: "./transcripts"
watch:
  directories: ["./dev/sample"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "store"); cfg.Store.Path != want {
		t.Errorf("store path = %s, want %s", cfg.Store.Path, want)
	}
	if want := filepath.Join(dir, "transcripts"); cfg.Transcription.TranscriptDir != want {
		t.Errorf("transcript dir = %s, want %s", cfg.Transcription.TranscriptDir, want)
	}
	if len(cfg.Watch.Directories) != 1 || cfg.Watch.Directories[0] != filepath.Join(dir, "dev", "sample") {
		t.Errorf("watch directories = %v", cfg.Watch.Directories)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	tests := []struct {
		in, want string
	}{
		{"/abs/path", "/abs/path"},
		{"./rel", "/cfg/rel"},
		{".", "/cfg"},
		{"~/docs", filepath.Join(home, "docs")},
		{".kiku/store", filepath.Join(home, ".kiku/store")},
	}
	for _, tt := range tests {
		if got := expandPath(tt.in, "/cfg"); got != tt.want {
			t.Errorf("expandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Embedding.Model != "bge-m3" || cfg.Embedding.URL != "http://localhost:11434" {
		t.Errorf("embedding = %+v", cfg.Embedding)
	}
	if cfg.Embedding.Dimensions != 1024 || cfg.Embedding.BatchSize != 32 || cfg.Embedding.Timeout != 5*time.Minute {
		t.Errorf("embedding tuning = %+v", cfg.Embedding)
	}
	if cfg.Embedding.MaxRetriesOrDefault() != 2 {
		t.Errorf("max retries = %d", cfg.Embedding.MaxRetriesOrDefault())
	}
	if cfg.Search.TopK != 5 || *cfg.Search.ScoreThreshold != 0.35 || *cfg.Search.MinWords != 6 {
		t.Errorf("search = %+v", cfg.Search)
	}
	if cfg.Ingest.ContextWindowOrDefault() != 1 || cfg.Ingest.Workers != 1 {
		t.Errorf("ingest = %+v", cfg.Ingest)
	}
	if cfg.Answer.Model != "llama3.1" {
		t.Errorf("answer model = %s", cfg.Answer.Model)
	}
	if cfg.Transcription.Provider != "sidecar" {
		t.Errorf("transcription provider = %s", cfg.Transcription.Provider)
	}
	if cfg.Watch.Recursive != nil {
		t.Error("recursive should stay unset without directories")
	}
}

func TestApplyDefaults_WatchRecursiveWhenDirectoriesSet(t *testing.T) {
	cfg := &Config{Watch: WatchConfig{Directories: []string{"/tmp/docs"}}}
	ApplyDefaults(cfg)
	if cfg.Watch.Recursive == nil || !*cfg.Watch.Recursive {
		t.Error("recursive should default to true when directories are set")
	}
}

func TestWatchConfig_RecursiveOrDefault(t *testing.T) {
	t.Run("nil_returns_true", func(t *testing.T) {
		w := &WatchConfig{}
		if got := w.RecursiveOrDefault(); !got {
			t.Errorf("RecursiveOrDefault() = %v, want true", got)
		}
	})
	t.Run("false_returns_false", func(t *testing.T) {
		f := false
		w := &WatchConfig{Recursive: &f}
		if got := w.RecursiveOrDefault(); got {
			t.Errorf("RecursiveOrDefault() = %v, want false", got)
		}
	})
}

func TestAPIKey(t *testing.T) {
	t.Setenv("KIKU_TEST_KEY", "sk-test")
	e := EmbeddingConfig{APIKeyEnv: "KIKU_TEST_KEY"}
	if e.APIKey() != "sk-test" {
		t.Errorf("APIKey = %q", e.APIKey())
	}
	if (TranscriptionConfig{}).APIKey() != "" {
		t.Error("empty env name should give empty key")
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "saved.yaml")
	cfg := Default(dir)
	cfg.Server.Port = 9090
	cfg.Store.Path = "/tmp/kiku-store"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 || loaded.Store.Path != "/tmp/kiku-store" {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.Embedding.Timeout != 5*time.Minute {
		t.Errorf("timeout round trip = %v", loaded.Embedding.Timeout)
	}
}
