// Package models defines core data structures for chunk records, transcript segments, queries, and search results.
package models

import (
	"strings"

	"github.com/hyperjump/kiku/pkg/utils"
)

// SourceType identifies the kind of source a record was extracted from.
type SourceType string

const (
	SourceAudio    SourceType = "audio"
	SourceVideo    SourceType = "video"
	SourceDocument SourceType = "document"
	SourceText     SourceType = "text"
)

// IsMedia reports whether records of this type carry a MediaLocator.
func (t SourceType) IsMedia() bool {
	return t == SourceAudio || t == SourceVideo
}

// Record is one retrievable text unit plus its provenance. Records are values;
// nothing in the pipeline mutates a record after extraction.
//
// Exactly one of MediaLocator or TextLocator is set, keyed by SourceType.
// Both are embedded so their fields sit at the top level of the JSON object.
type Record struct {
	EmbeddingText string     `json:"embedding_text"`
	DisplayText   string     `json:"display_text"`
	SourceType    SourceType `json:"source_type"`
	SourceName    string     `json:"source_name"`

	*MediaLocator
	*TextLocator
}

// MediaLocator positions a record inside a transcript.
type MediaLocator struct {
	SegmentIndex int     `json:"segment_index"`
	StartTime    float64 `json:"start_time"`
	EndTime      float64 `json:"end_time"`
}

// TextLocator positions a record inside a document or text file.
// Page is set for PDF sources only (1-based).
type TextLocator struct {
	ParagraphID   string `json:"paragraph_id"`
	SentenceIndex int    `json:"sentence_index"`
	Page          *int   `json:"page,omitempty"`
}

// Context returns the text shown to a reader: DisplayText, or EmbeddingText when no larger unit exists.
func (r Record) Context() string {
	if strings.TrimSpace(r.DisplayText) != "" {
		return r.DisplayText
	}
	return r.EmbeddingText
}

// WordCount returns the number of whitespace-separated words in EmbeddingText.
func (r Record) WordCount() int {
	return utils.WordCount(r.EmbeddingText)
}

// Segment is one timestamped transcript unit produced by a transcriber.
type Segment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}
