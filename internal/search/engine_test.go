package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/storage"
)

func buildStore(t *testing.T, emb embedding.Embedder, n int) (string, []models.Record) {
	t.Helper()
	recs := make([]models.Record, n)
	for i := range recs {
		recs[i] = models.Record{
			EmbeddingText: fmt.Sprintf("record %d says something about subject %d here", i, i),
			SourceType:    models.SourceText,
			SourceName:    "doc.txt",
			TextLocator:   &models.TextLocator{ParagraphID: fmt.Sprintf("doc.txt_para%d", i)},
		}
	}
	recs[n-1].EmbeddingText = "too short"

	dir := t.TempDir()
	s := storage.NewStore(emb)
	if err := s.Add(context.Background(), recs); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(dir); err != nil {
		t.Fatal(err)
	}
	return dir, recs
}

func TestSearchVectorDB_ExactQueryRanksFirst(t *testing.T) {
	emb := embedding.NewMockEmbedder(64)
	dir, recs := buildStore(t, emb, 10)
	e := NewEngine(dir, emb)

	res, err := e.SearchVectorDB(context.Background(), recs[3].EmbeddingText, 5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(res) == 0 || res[0].ParagraphID != "doc.txt_para3" {
		t.Fatalf("top result = %+v", res)
	}
	if res[0].Score < 0.9999 {
		t.Errorf("score = %v", res[0].Score)
	}
}

func TestSearchVectorDB_ThresholdMonotonic(t *testing.T) {
	emb := embedding.NewMockEmbedder(64)
	dir, recs := buildStore(t, emb, 10)
	e := NewEngine(dir, emb)
	ctx := context.Background()

	prev := -1
	for _, th := range []float64{0.99, 0.5, 0.2, 0, -1} {
		res, err := e.SearchVectorDB(ctx, recs[1].EmbeddingText, 10, th)
		if err != nil {
			t.Fatal(err)
		}
		if prev >= 0 && len(res) < prev {
			t.Errorf("lowering threshold to %v shrank results from %d to %d", th, prev, len(res))
		}
		for _, r := range res {
			if r.Score < th {
				t.Errorf("result below threshold %v: %v", th, r.Score)
			}
		}
		prev = len(res)
	}
}

func TestRetrieve_NoRelevantResults(t *testing.T) {
	emb := embedding.NewMockEmbedder(64)
	dir, _ := buildStore(t, emb, 10)
	e := NewEngine(dir, emb)

	th := 0.9
	resp, err := e.Retrieve(context.Background(), &models.SearchQuery{Query: "completely unrelated words", ScoreThreshold: &th})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.NoRelevantResults || resp.Total != 0 || resp.Results == nil {
		t.Errorf("resp = %+v", resp)
	}
}

func TestRetrieve_AppliesMinWords(t *testing.T) {
	emb := embedding.NewMockEmbedder(64)
	dir, recs := buildStore(t, emb, 4)
	e := NewEngine(dir, emb, WithDefaults(10, -1, 6))

	resp, err := e.Retrieve(context.Background(), &models.SearchQuery{Query: recs[3].EmbeddingText})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Total != 3 {
		t.Errorf("Total = %d, want 3", resp.Total)
	}
	for _, r := range resp.Results {
		if r.EmbeddingText == "too short" {
			t.Error("short record survived the min-words filter")
		}
	}

	zero := 0
	resp, _ = e.Retrieve(context.Background(), &models.SearchQuery{Query: "x", MinWords: &zero})
	if resp.Total != 4 {
		t.Errorf("with min_words 0 Total = %d", resp.Total)
	}
}

func TestRetrieve_Errors(t *testing.T) {
	emb := embedding.NewMockEmbedder(8)
	e := NewEngine(t.TempDir(), emb)
	if _, err := e.Retrieve(context.Background(), &models.SearchQuery{Query: "hello"}); !errors.Is(err, storage.ErrStoreNotFound) {
		t.Errorf("err = %v", err)
	}
	if _, err := e.Retrieve(context.Background(), &models.SearchQuery{Query: "  "}); err == nil {
		t.Error("empty query should fail")
	}
}

func TestFilters(t *testing.T) {
	results := []*models.SearchResult{
		{Record: models.Record{EmbeddingText: "one two three four five six"}, Score: 0.8},
		{Record: models.Record{EmbeddingText: "one two"}, Score: 0.6},
		{Record: models.Record{EmbeddingText: "  a  b  c  d  e  f  g "}, Score: 0.35},
		{Record: models.Record{EmbeddingText: "x"}, Score: 0.1},
	}
	tests := []struct {
		name string
		got  []*models.SearchResult
		want []float64
	}{
		{"score 0.35", FilterScore(results, 0.35), []float64{0.8, 0.6, 0.35}},
		{"score 0.9", FilterScore(results, 0.9), nil},
		{"min words 6", FilterMinWords(results, 6), []float64{0.8, 0.35}},
		{"min words 0", FilterMinWords(results, 0), []float64{0.8, 0.6, 0.35, 0.1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if len(tt.got) != len(tt.want) {
				t.Fatalf("got %d results, want %d", len(tt.got), len(tt.want))
			}
			for i, r := range tt.got {
				if r.Score != tt.want[i] {
					t.Errorf("result %d score = %v, want %v", i, r.Score, tt.want[i])
				}
			}
		})
	}
}
