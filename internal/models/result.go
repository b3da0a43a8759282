package models

// SearchResult is a record annotated with its similarity score.
type SearchResult struct {
	Record
	Score float64 `json:"score"`
}

// SearchResponse is the response for a retrieval request.
type SearchResponse struct {
	Query   string          `json:"query"`
	Results []*SearchResult `json:"results"`
	Total   int             `json:"total"`
	// NoRelevantResults is set when nothing survived the score and word filters.
	// It is a normal outcome, not an error.
	NoRelevantResults bool  `json:"no_relevant_results"`
	QueryTime         int64 `json:"query_time_ms"`
}

// NoRelevantDataMessage is shown to users when a query returns nothing above threshold.
const NoRelevantDataMessage = "No relevant data found"

// AnswerResponse is a generated answer with the records it was grounded on.
type AnswerResponse struct {
	Query   string          `json:"query"`
	Answer  string          `json:"answer"`
	Sources []*SearchResult `json:"sources"`
}
