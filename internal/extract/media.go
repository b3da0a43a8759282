package extract

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/pkg/utils"
)

// MediaRecords builds one record per transcript segment. Each record embeds its own
// segment text and displays the window of up to w segments on either side, clamped
// at the ends of the transcript. Times are rounded to two decimals.
// Segments whose text is blank produce no record but still occupy their index.
func MediaRecords(st models.SourceType, sourceName string, segments []models.Segment, w int) []models.Record {
	if w < 0 {
		w = 0
	}
	n := len(segments)
	out := make([]models.Record, 0, n)
	for i, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		start := max(0, i-w)
		end := min(n, i+w+1)
		window := make([]string, 0, end-start)
		for _, s := range segments[start:end] {
			window = append(window, s.Text)
		}
		out = append(out, models.Record{
			EmbeddingText: text,
			DisplayText:   utils.JoinTrimmed(window),
			SourceType:    st,
			SourceName:    sourceName,
			MediaLocator: &models.MediaLocator{
				SegmentIndex: i,
				StartTime:    utils.Round2(segments[start].Start),
				EndTime:      utils.Round2(segments[end-1].End),
			},
		})
	}
	return out
}

// ValidateSegments checks that times are non-negative, that no segment ends before
// it starts, and that neither start nor end times decrease.
func ValidateSegments(segments []models.Segment) error {
	prev, prevEnd := 0.0, 0.0
	for i, s := range segments {
		if s.Start < 0 || s.End < 0 {
			return fmt.Errorf("segment %d: negative time (start=%v end=%v)", i, s.Start, s.End)
		}
		if s.End < s.Start {
			return fmt.Errorf("segment %d: end %v before start %v", i, s.End, s.Start)
		}
		if s.Start < prev {
			return fmt.Errorf("segment %d: start %v before previous start %v", i, s.Start, prev)
		}
		if s.End < prevEnd {
			return fmt.Errorf("segment %d: end %v before previous end %v", i, s.End, prevEnd)
		}
		prev, prevEnd = s.Start, s.End
	}
	return nil
}
