package answer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperjump/kiku/internal/models"
)

func results() []*models.SearchResult {
	return []*models.SearchResult{
		{Record: models.Record{EmbeddingText: "Cats purr.", DisplayText: "Cats purr. Dogs bark.", SourceName: "pets.txt"}, Score: 0.9},
		{Record: models.Record{EmbeddingText: "Water boils at 100C.", SourceName: "lecture.mp4"}, Score: 0.5},
	}
}

func TestBuildContext(t *testing.T) {
	got := BuildContext(results())
	want := "[1] Cats purr. Dogs bark. (Source: pets.txt)\n\n[2] Water boils at 100C. (Source: lecture.mp4)"
	if got != want {
		t.Errorf("BuildContext() =\n%q\nwant\n%q", got, want)
	}
	if BuildContext(nil) != "" {
		t.Error("empty results should give an empty context")
	}
}

func TestBuildPrompt(t *testing.T) {
	p := BuildPrompt("Do cats purr?", results())
	for _, want := range []string{
		"using ONLY the reference context",
		`say "I don't know"`,
		"### Reference Context:\n[1] Cats purr.",
		"### User Question:\nDo cats purr?",
	} {
		if !strings.Contains(p, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

type recordingGen struct {
	calls  int
	prompt string
}

func (g *recordingGen) Generate(_ context.Context, prompt string) (string, error) {
	g.calls++
	g.prompt = prompt
	return "  Yes, they purr.\n", nil
}

func TestAnswerer(t *testing.T) {
	gen := &recordingGen{}
	a := NewAnswerer(gen, nil)

	got, err := a.Answer(context.Background(), "anything?", nil)
	if err != nil || got != IDontKnow {
		t.Fatalf("empty results: %q, %v", got, err)
	}
	if gen.calls != 0 {
		t.Error("model called with no context")
	}

	got, err = a.Answer(context.Background(), "Do cats purr?", results())
	if err != nil {
		t.Fatal(err)
	}
	if got != "Yes, they purr." {
		t.Errorf("answer = %q", got)
	}
	if !strings.Contains(gen.prompt, "Do cats purr?") {
		t.Error("question not in prompt")
	}
}

func TestOllamaChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Stream || req.Model != "llama3.1" || len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("request = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(chatResponse{Message: chatMessage{Role: "assistant", Content: "42"}, Done: true})
	}))
	defer srv.Close()

	got, err := NewOllamaChat(srv.URL+"/", "", 0).Generate(context.Background(), "question")
	if err != nil || got != "42" {
		t.Fatalf("Generate = %q, %v", got, err)
	}
}

func TestOllamaChat_status(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model missing", http.StatusNotFound)
	}))
	defer srv.Close()
	if _, err := NewOllamaChat(srv.URL, "x", 0).Generate(context.Background(), "q"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("err = %v", err)
	}
}
