package extract

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestParseTranscript(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int
		wantErr bool
	}{
		{"chunks", `{"chunks":[{"title":"a.mp3","start":0,"end":1.5,"text":" hi"}],"text":" hi"}`, 1, false},
		{"segments", `{"segments":[{"start":0,"end":1,"text":"a"},{"start":1,"end":2,"text":"b"}]}`, 2, false},
		{"bare array", `[{"start":0,"end":1,"text":"a"}]`, 1, false},
		{"empty chunks", `{"chunks":[]}`, 0, false},
		{"neither key", `{"text":"only text"}`, 0, true},
		{"empty file", ``, 0, true},
		{"not json", `hello`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTranscript([]byte(tt.in))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("got %d segments, want %d", len(got), tt.want)
			}
		})
	}
}

func TestParseTranscript_values(t *testing.T) {
	got, err := ParseTranscript([]byte(`{"chunks":[{"start":1.25,"end":3.5,"text":" spoken words "}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Start != 1.25 || got[0].End != 3.5 || got[0].Text != " spoken words " {
		t.Errorf("got %+v", got[0])
	}
}

func TestSidecarTranscriber(t *testing.T) {
	dir := t.TempDir()
	media := filepath.Join(dir, "talk.mp3")
	if err := os.WriteFile(media+".json", []byte(`{"chunks":[{"start":0,"end":1,"text":"hello"}]}`), 0600); err != nil {
		t.Fatal(err)
	}
	tr := NewSidecarTranscriber("")
	got, err := tr.Transcribe(context.Background(), media)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(got) != 1 || got[0].Text != "hello" {
		t.Errorf("got %+v", got)
	}

	if _, err := tr.Transcribe(context.Background(), filepath.Join(dir, "missing.mp3")); err == nil {
		t.Error("expected error for missing transcript")
	}
}

func TestSidecarTranscriber_sharedDir(t *testing.T) {
	jsonDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(jsonDir, "clip.mp4.json"), []byte(`[{"start":0,"end":2,"text":"x"}]`), 0600); err != nil {
		t.Fatal(err)
	}
	tr := NewSidecarTranscriber(jsonDir)
	if got := tr.TranscriptPath("/videos/clip.mp4"); got != filepath.Join(jsonDir, "clip.mp4.json") {
		t.Errorf("TranscriptPath = %q", got)
	}
	got, err := tr.Transcribe(context.Background(), "/videos/clip.mp4")
	if err != nil || len(got) != 1 {
		t.Fatalf("Transcribe = %v, %v", got, err)
	}
}

func TestSidecarMediaPath(t *testing.T) {
	tests := []struct {
		in    string
		media string
		ok    bool
	}{
		{"/a/talk.mp4.json", "/a/talk.mp4", true},
		{"/a/talk.MP3.JSON", "/a/talk.MP3", true},
		{"/a/notes.txt.json", "", false},
		{"/a/data.json", "", false},
		{"/a/talk.mp4", "", false},
	}
	for _, tt := range tests {
		media, ok := SidecarMediaPath(tt.in)
		if media != tt.media || ok != tt.ok {
			t.Errorf("SidecarMediaPath(%q) = %q, %v; want %q, %v", tt.in, media, ok, tt.media, tt.ok)
		}
	}
}
