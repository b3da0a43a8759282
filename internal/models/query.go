package models

import (
	"errors"
	"fmt"
	"strings"
)

const maxTopK = 100

// ErrInvalidQuery is returned by Validate for unusable queries.
var ErrInvalidQuery = errors.New("invalid query")

// SearchQuery represents a retrieval request. Zero values for TopK, ScoreThreshold
// and MinWords are replaced by the caller's configured defaults before use.
type SearchQuery struct {
	Query          string   `json:"query"`
	TopK           int      `json:"top_k,omitempty"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty"`
	MinWords       *int     `json:"min_words,omitempty"`
}

// Validate ensures the query is usable and fills unset fields from the given defaults.
// TopK is capped at 100.
func (q *SearchQuery) Validate(defaultTopK int, defaultThreshold float64, defaultMinWords int) error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("%w: query cannot be empty", ErrInvalidQuery)
	}
	if q.TopK <= 0 {
		q.TopK = defaultTopK
	}
	if q.TopK <= 0 {
		q.TopK = 5
	}
	if q.TopK > maxTopK {
		q.TopK = maxTopK
	}
	if q.ScoreThreshold == nil {
		t := defaultThreshold
		q.ScoreThreshold = &t
	}
	if q.MinWords == nil {
		n := defaultMinWords
		q.MinWords = &n
	}
	if *q.MinWords < 0 {
		return fmt.Errorf("%w: min_words cannot be negative", ErrInvalidQuery)
	}
	return nil
}
