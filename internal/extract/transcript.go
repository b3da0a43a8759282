package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/kiku/internal/models"
)

// Transcriber turns an audio or video file into ordered, timestamped segments.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) ([]models.Segment, error)
}

// SidecarTranscriber reads transcripts that were produced ahead of time and stored
// as "<media file name>.json", either next to the media file or in a shared directory.
type SidecarTranscriber struct {
	dir string
}

// NewSidecarTranscriber returns a transcriber that looks in dir, or next to each media
// file when dir is empty.
func NewSidecarTranscriber(dir string) *SidecarTranscriber {
	return &SidecarTranscriber{dir: dir}
}

// TranscriptPath returns where the transcript for mediaPath is expected.
func (t *SidecarTranscriber) TranscriptPath(mediaPath string) string {
	if t.dir != "" {
		return filepath.Join(t.dir, filepath.Base(mediaPath)+".json")
	}
	return mediaPath + ".json"
}

// Transcribe loads and parses the sidecar transcript for path.
func (t *SidecarTranscriber) Transcribe(_ context.Context, path string) ([]models.Segment, error) {
	tp := t.TranscriptPath(path)
	data, err := os.ReadFile(tp)
	if err != nil {
		return nil, fmt.Errorf("read transcript %s: %w", tp, err)
	}
	segs, err := ParseTranscript(data)
	if err != nil {
		return nil, fmt.Errorf("transcript %s: %w", tp, err)
	}
	return segs, nil
}

type segmentJSON struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ParseTranscript decodes a transcript document. Accepted shapes are a bare array of
// segments, {"segments": [...]} as emitted by whisper, and {"chunks": [...]} as written
// by the batch transcription script. Each segment has text, start and end in seconds.
func ParseTranscript(data []byte) ([]models.Segment, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("empty transcript")
	}
	var raw []segmentJSON
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, fmt.Errorf("decode transcript: %w", err)
		}
		return toSegments(raw), nil
	}
	var doc struct {
		Segments *[]segmentJSON `json:"segments"`
		Chunks   *[]segmentJSON `json:"chunks"`
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, fmt.Errorf("decode transcript: %w", err)
	}
	switch {
	case doc.Segments != nil:
		raw = *doc.Segments
	case doc.Chunks != nil:
		raw = *doc.Chunks
	default:
		return nil, fmt.Errorf("transcript has neither segments nor chunks")
	}
	return toSegments(raw), nil
}

func toSegments(raw []segmentJSON) []models.Segment {
	out := make([]models.Segment, len(raw))
	for i, s := range raw {
		out[i] = models.Segment{Text: s.Text, Start: s.Start, End: s.End}
	}
	return out
}

// SidecarMediaPath reports whether path looks like the sidecar transcript of a media
// file ("talk.mp4.json") and returns that media path.
func SidecarMediaPath(path string) (string, bool) {
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return "", false
	}
	media := path[:len(path)-len(".json")]
	f, ok := FormatOf(media)
	if !ok || !f.IsMedia() {
		return "", false
	}
	return media, true
}
