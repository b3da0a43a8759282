// Package cli renders search results, answers, records and status for the terminal.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/hyperjump/kiku/internal/indexer"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/server"
	"github.com/hyperjump/kiku/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// maxContextChars caps how much of a record's context is printed in text mode.
const maxContextChars = 400

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	if response.NoRelevantResults || len(response.Results) == 0 {
		fmt.Fprintln(w, warnStyle.Render(models.NoRelevantDataMessage))
		return nil
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Found %d results in %dms", response.Total, response.QueryTime)))
	fmt.Fprintln(w)
	for i, r := range response.Results {
		writeResult(w, i+1, r)
	}
	return nil
}

func writeResult(w io.Writer, rank int, r *models.SearchResult) {
	fmt.Fprintln(w, rule(60))
	fmt.Fprintf(w, "%d. %s %s\n", rank, sourceStyle.Render(r.SourceName), scoreStyle.Render(fmt.Sprintf("(score %.4f)", r.Score)))
	if loc := FormatLocator(r.Record); loc != "" {
		fmt.Fprintln(w, locatorStyle.Render(loc))
	}
	fmt.Fprintln(w, contentStyle.Render(utils.Truncate(r.Context(), maxContextChars)))
	fmt.Fprintln(w)
}

// FormatLocator describes where a record sits in its source.
func FormatLocator(r models.Record) string {
	switch {
	case r.MediaLocator != nil:
		return fmt.Sprintf("%s segment %d [%s - %s]", r.SourceType, r.SegmentIndex,
			FormatTimestamp(r.StartTime), FormatTimestamp(r.EndTime))
	case r.TextLocator != nil:
		if r.Page != nil {
			return fmt.Sprintf("page %d, %s, sentence %d", *r.Page, r.ParagraphID, r.SentenceIndex)
		}
		return fmt.Sprintf("%s, sentence %d", r.ParagraphID, r.SentenceIndex)
	}
	return ""
}

// FormatTimestamp renders seconds as mm:ss, or h:mm:ss past the hour.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	total := int(seconds)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// WriteAnswer writes a generated answer followed by its sources.
func WriteAnswer(w io.Writer, resp *models.AnswerResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintln(w, answerStyle.Render(resp.Answer))
	if len(resp.Sources) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, headerStyle.Render("Sources"))
	for i, r := range resp.Sources {
		line := fmt.Sprintf("[%d] %s", i+1, r.SourceName)
		if loc := FormatLocator(r.Record); loc != "" {
			line += " " + locatorStyle.Render("("+loc+")")
		}
		fmt.Fprintln(w, line)
	}
	return nil
}

// WriteRecords writes extracted records. JSON output is the bare record array.
func WriteRecords(w io.Writer, records []models.Record, format OutputFormat) error {
	if format == OutputJSON {
		if records == nil {
			records = []models.Record{}
		}
		return writeJSON(w, records)
	}
	for i, r := range records {
		fmt.Fprintf(w, "%s %s\n", headerStyle.Render(fmt.Sprintf("#%d", i)), locatorStyle.Render(FormatLocator(r)))
		fmt.Fprintln(w, contentStyle.Render(r.EmbeddingText))
	}
	fmt.Fprintln(w, locatorStyle.Render(fmt.Sprintf("%d records", len(records))))
	return nil
}

// BuildSummary is the printable outcome of an index build.
type BuildSummary struct {
	Dir        string        `json:"dir"`
	Files      int           `json:"files"`
	Records    int           `json:"records"`
	SnapshotID string        `json:"snapshot_id"`
	Failures   []FailureLine `json:"failures,omitempty"`
	Took       time.Duration `json:"took_ns"`
}

// FailureLine is a file that could not be extracted.
type FailureLine struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// NewBuildSummary summarizes res.
func NewBuildSummary(res *indexer.BuildResult, took time.Duration) BuildSummary {
	s := BuildSummary{Dir: res.Dir, Files: res.Files, Records: len(res.Records), Took: took}
	if res.Store != nil {
		s.SnapshotID = res.Store.SnapshotID().String()
	}
	for _, f := range res.Failures {
		s.Failures = append(s.Failures, FailureLine{Path: f.Path, Error: f.Err.Error()})
	}
	return s
}

// WriteBuildSummary writes the result of an index build.
func WriteBuildSummary(w io.Writer, s BuildSummary, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, s)
	}
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Indexed %d records from %d files in %s",
		s.Records, s.Files, s.Took.Round(time.Millisecond))))
	fmt.Fprintln(w, labelStyle.Render("Store")+s.Dir)
	fmt.Fprintln(w, labelStyle.Render("Snapshot")+s.SnapshotID)
	if len(s.Failures) > 0 {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("%d files skipped:", len(s.Failures))))
		for _, f := range s.Failures {
			fmt.Fprintf(w, "  %s: %s\n", f.Path, f.Error)
		}
	}
	return nil
}

// WriteStatus writes store and configuration status.
func WriteStatus(w io.Writer, st *server.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	row := func(label string, value any) {
		fmt.Fprintln(w, labelStyle.Render(label)+fmt.Sprint(value))
	}
	fmt.Fprintln(w, headerStyle.Render("kiku status"))
	if st.Indexed && st.Store != nil {
		row("Records", st.Store.Records)
		row("Dimensions", st.Store.Dimensions)
		row("Snapshot", st.Store.SnapshotID)
		row("Saved at", st.Store.SavedAt.Format(time.RFC3339))
		row("Disk usage", FormatBytes(st.Store.SizeBytes))
	} else {
		fmt.Fprintln(w, warnStyle.Render("No index built yet; run kiku index <path>"))
	}
	row("Store path", st.Config.StorePath)
	row("Embedding", fmt.Sprintf("%s/%s (%d dims)", st.Config.EmbeddingProvider, st.Config.EmbeddingModel, st.Config.EmbeddingDimension))
	row("Top k", st.Config.TopK)
	row("Score threshold", st.Config.ScoreThreshold)
	row("Min words", st.Config.MinWords)
	if st.Config.AnswerModel != "" {
		row("Answer model", st.Config.AnswerModel)
	}
	if len(st.Watch) > 0 {
		row("Watching", strings.Join(st.Watch, ", "))
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
