// Package extract turns source files into ordered chunk records. A Router picks the
// extractor from the file extension; media files go through a Transcriber first.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/kiku/internal/fileid"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/sentence"
	"github.com/hyperjump/kiku/pkg/utils"
	"go.uber.org/zap"
)

// Format is the extractor family a file extension maps to.
type Format string

const (
	FormatAudio Format = "audio"
	FormatVideo Format = "video"
	FormatPDF   Format = "pdf"
	FormatDOCX  Format = "docx"
	FormatText  Format = "text"
)

var extensionFormats = map[string]Format{
	".mp4":  FormatVideo,
	".mkv":  FormatVideo,
	".avi":  FormatVideo,
	".mp3":  FormatAudio,
	".wav":  FormatAudio,
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".txt":  FormatText,
}

// FormatOf returns the format for path's extension (case-insensitive).
func FormatOf(path string) (Format, bool) {
	f, ok := extensionFormats[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// SupportedExtensions returns the routed extensions in sorted order.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(extensionFormats))
	for ext := range extensionFormats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// IsMedia reports whether f is extracted from a transcript.
func (f Format) IsMedia() bool {
	return f == FormatAudio || f == FormatVideo
}

// DefaultContextWindow is the number of neighbouring transcript segments on each side
// included in a media record's display text.
const DefaultContextWindow = 1

// Router dispatches files to the extractor for their format.
type Router struct {
	transcriber Transcriber
	splitter    sentence.Splitter
	window      int
	logger      *zap.Logger
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithTranscriber sets the transcriber used for audio and video files.
func WithTranscriber(t Transcriber) RouterOption {
	return func(r *Router) { r.transcriber = t }
}

// WithSplitter replaces the default Punkt sentence splitter.
func WithSplitter(s sentence.Splitter) RouterOption {
	return func(r *Router) { r.splitter = s }
}

// WithContextWindow sets the media context window; negative values are treated as 0.
func WithContextWindow(w int) RouterOption {
	return func(r *Router) {
		if w < 0 {
			w = 0
		}
		r.window = w
	}
}

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// NewRouter returns a Router. Without WithTranscriber, media files fail with an ExtractionError.
func NewRouter(opts ...RouterOption) (*Router, error) {
	r := &Router{window: DefaultContextWindow}
	for _, opt := range opts {
		opt(r)
	}
	if r.splitter == nil {
		s, err := sentence.Default()
		if err != nil {
			return nil, fmt.Errorf("load sentence splitter: %w", err)
		}
		r.splitter = s
	}
	r.logger = utils.OrNop(r.logger)
	return r, nil
}

// Extract returns the records for the file at path. Unknown extensions fail with
// ErrUnsupportedFormat; unreadable or malformed files fail with *ExtractionError.
func (r *Router) Extract(ctx context.Context, path string) ([]models.Record, error) {
	format, ok := FormatOf(path)
	if !ok {
		return nil, fmt.Errorf("%w: %q (%s)", ErrUnsupportedFormat, filepath.Ext(path), path)
	}
	name := fileid.SourceName(path)
	r.logger.Debug("extracting", zap.String("path", path), zap.String("format", string(format)))

	if format.IsMedia() {
		if r.transcriber == nil {
			return nil, extractionError(path, fmt.Errorf("no transcriber configured for %s files", format))
		}
		segments, err := r.transcriber.Transcribe(ctx, path)
		if err != nil {
			return nil, extractionError(path, err)
		}
		if err := ValidateSegments(segments); err != nil {
			return nil, extractionError(path, err)
		}
		st := models.SourceAudio
		if format == FormatVideo {
			st = models.SourceVideo
		}
		return MediaRecords(st, name, segments, r.window), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, extractionError(path, fmt.Errorf("read file: %w", err))
	}
	recs, err := r.ExtractDocument(name, content)
	if err != nil {
		return nil, extractionError(path, err)
	}
	return recs, nil
}

// ExtractDocument extracts records from in-memory document content. The format is
// taken from sourceName's extension; media formats are rejected because they need
// a transcript.
func (r *Router) ExtractDocument(sourceName string, content []byte) ([]models.Record, error) {
	format, ok := FormatOf(sourceName)
	if !ok || format.IsMedia() {
		return nil, fmt.Errorf("%w: %q (%s)", ErrUnsupportedFormat, filepath.Ext(sourceName), sourceName)
	}
	switch format {
	case FormatPDF:
		pages, err := pdfPageBlocks(content)
		if err != nil {
			return nil, err
		}
		return r.paragraphRecords(models.SourceDocument, sourceName, pdfParagraphs(sourceName, pages)), nil
	case FormatDOCX:
		paras, err := docxParagraphs(content)
		if err != nil {
			return nil, err
		}
		return r.paragraphRecords(models.SourceDocument, sourceName, indexedParagraphs(sourceName, paras)), nil
	default:
		return r.paragraphRecords(models.SourceText, sourceName, indexedParagraphs(sourceName, plainParagraphs(content))), nil
	}
}
