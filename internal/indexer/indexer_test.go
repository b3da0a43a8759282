package indexer

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperjump/kiku/internal/embedding"
	"github.com/hyperjump/kiku/internal/extract"
	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/internal/storage"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
}

func newRouter(t *testing.T) *extract.Router {
	t.Helper()
	r, err := extract.NewRouter(extract.WithTranscriber(extract.NewSidecarTranscriber("")))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

// corpus lays out a directory with good files, a malformed DOCX, an unsupported
// file, a media file with its transcript, and an ignored directory.
func corpus(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "Alpha paragraph one.\n\nAlpha paragraph two.")
	writeFile(t, filepath.Join(dir, "b", "c.txt"), "Nested file text.")
	writeFile(t, filepath.Join(dir, "bad.docx"), "not a zip archive")
	writeFile(t, filepath.Join(dir, "notes.xyz"), "unsupported")
	writeFile(t, filepath.Join(dir, "talk.mp3"), "ID3")
	writeFile(t, filepath.Join(dir, "talk.mp3.json"), `{"chunks":[{"start":0,"end":1,"text":"Spoken words here."}]}`)
	writeFile(t, filepath.Join(dir, "tmp", "skip.txt"), "Should be ignored.")
	return dir
}

func TestIngest_DirectoryIsResilient(t *testing.T) {
	dir := corpus(t)
	for _, workers := range []int{1, 4} {
		idx := NewIndexer(newRouter(t), embedding.NewMockEmbedder(8), filepath.Join(dir, ".kiku"),
			WithWorkers(workers), WithIgnore([]string{"tmp/"}))
		res, err := idx.Ingest(context.Background(), dir)
		if err != nil {
			t.Fatalf("workers=%d: Ingest: %v", workers, err)
		}
		var names []string
		for _, r := range res.Records {
			names = append(names, r.SourceName)
		}
		want := "a.txt,a.txt,c.txt,talk.mp3"
		if got := strings.Join(names, ","); got != want {
			t.Errorf("workers=%d: record order = %s, want %s", workers, got, want)
		}
		if res.Files != 5 {
			t.Errorf("workers=%d: Files = %d, want 5", workers, res.Files)
		}
		if len(res.Failures) != 2 {
			t.Fatalf("workers=%d: failures = %v", workers, res.Failures)
		}
		var ee *extract.ExtractionError
		if !errors.As(res.Failures[0].Err, &ee) || filepath.Base(res.Failures[0].Path) != "bad.docx" {
			t.Errorf("first failure = %v", res.Failures[0])
		}
		if !errors.Is(res.Failures[1].Err, extract.ErrUnsupportedFormat) {
			t.Errorf("second failure = %v", res.Failures[1])
		}
	}
}

func TestIngest_SingleFileErrorsAreFatal(t *testing.T) {
	dir := corpus(t)
	idx := NewIndexer(newRouter(t), embedding.NewMockEmbedder(8), t.TempDir())
	tests := []struct {
		name string
		path string
		is   error
	}{
		{"unsupported", filepath.Join(dir, "notes.xyz"), extract.ErrUnsupportedFormat},
		{"missing", filepath.Join(dir, "nope.txt"), fs.ErrNotExist},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := idx.Ingest(context.Background(), tt.path); !errors.Is(err, tt.is) {
				t.Errorf("err = %v, want %v", err, tt.is)
			}
		})
	}

	res, err := idx.Ingest(context.Background(), filepath.Join(dir, "a.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 2 || res.Files != 1 {
		t.Errorf("got %d records from %d files", len(res.Records), res.Files)
	}
}

func TestIngest_SkipsStoreDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "Some text.")
	storeDir := filepath.Join(dir, "store")
	writeFile(t, filepath.Join(storeDir, "stale.txt"), "Should not be indexed.")

	idx := NewIndexer(newRouter(t), embedding.NewMockEmbedder(8), storeDir)
	res, err := idx.Ingest(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Records) != 1 || res.Files != 1 {
		t.Errorf("got %d records from %d files", len(res.Records), res.Files)
	}
}

func TestBuild(t *testing.T) {
	dir := corpus(t)
	storeDir := filepath.Join(t.TempDir(), "store")
	emb := embedding.NewMockEmbedder(16)
	idx := NewIndexer(newRouter(t), emb, storeDir, WithIgnore([]string{"tmp/"}))

	res, err := idx.Build(context.Background(), dir)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Store.Len() != 4 {
		t.Errorf("store has %d records", res.Store.Len())
	}

	loaded, err := storage.Load(storeDir, emb)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	hits, err := loaded.Search(context.Background(), "Spoken words here.", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].SourceType != models.SourceAudio {
		t.Errorf("hits = %+v", hits)
	}
}

type failingEmbedder struct{ *embedding.MockEmbedder }

func (failingEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, &embedding.ServiceError{Op: "request", Err: errors.New("down")}
}

func TestBuild_EmbeddingFailureSavesNothing(t *testing.T) {
	dir := corpus(t)
	storeDir := filepath.Join(t.TempDir(), "store")
	idx := NewIndexer(newRouter(t), failingEmbedder{embedding.NewMockEmbedder(8)}, storeDir)
	if _, err := idx.Build(context.Background(), dir); !errors.Is(err, embedding.ErrService) {
		t.Fatalf("err = %v", err)
	}
	if _, err := storage.Load(storeDir, embedding.NewMockEmbedder(8)); !errors.Is(err, storage.ErrStoreNotFound) {
		t.Errorf("expected no store, got %v", err)
	}
}

func TestBuild_NoPaths(t *testing.T) {
	idx := NewIndexer(newRouter(t), embedding.NewMockEmbedder(8), t.TempDir())
	if _, err := idx.Build(context.Background()); err == nil {
		t.Error("expected error")
	}
}
