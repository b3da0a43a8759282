package extract

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hyperjump/kiku/internal/models"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultWhisperModel is the transcription model requested when none is configured.
const DefaultWhisperModel = "whisper-1"

// WhisperTranscriber calls an OpenAI-compatible /audio/transcriptions endpoint and
// asks for verbose JSON so segment timestamps are returned.
type WhisperTranscriber struct {
	client   openai.Client
	model    string
	language string
}

// WhisperConfig configures a WhisperTranscriber.
type WhisperConfig struct {
	APIKey   string
	BaseURL  string // empty uses the OpenAI API
	Model    string
	Language string // optional ISO-639-1 hint
	Timeout  time.Duration
}

// NewWhisperTranscriber returns a transcriber for the given endpoint.
func NewWhisperTranscriber(cfg WhisperConfig) *WhisperTranscriber {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultWhisperModel
	}
	return &WhisperTranscriber{
		client:   openai.NewClient(opts...),
		model:    model,
		language: cfg.Language,
	}
}

type verboseTranscription struct {
	Text     string        `json:"text"`
	Segments []segmentJSON `json:"segments"`
}

// Transcribe uploads the file and returns its segments.
func (w *WhisperTranscriber) Transcribe(ctx context.Context, path string) ([]models.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open media: %w", err)
	}
	defer f.Close()

	params := openai.AudioTranscriptionNewParams{
		File:           f,
		Model:          openai.AudioModel(w.model),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	}
	if w.language != "" {
		params.Language = openai.String(w.language)
	}
	var out verboseTranscription
	if _, err := w.client.Audio.Transcriptions.New(ctx, params, option.WithResponseBodyInto(&out)); err != nil {
		return nil, fmt.Errorf("transcribe %s: %w", path, err)
	}
	return toSegments(out.Segments), nil
}
