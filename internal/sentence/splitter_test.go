package sentence

import (
	"reflect"
	"testing"
)

func newSplitter(t *testing.T) *PunktSplitter {
	t.Helper()
	s, err := Default()
	if err != nil {
		t.Fatalf("load splitter: %v", err)
	}
	return s
}

func TestSplit_twoSentences(t *testing.T) {
	s := newSplitter(t)
	got := Collect(s.Split("Hello world. This is a test."))
	want := []string{"Hello world.", "This is a test."}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSplit_abbreviation(t *testing.T) {
	s := newSplitter(t)
	got := Collect(s.Split("Dr. Smith arrived late. He apologized."))
	if len(got) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %q", len(got), got)
	}
	if got[0] != "Dr. Smith arrived late." {
		t.Errorf("first sentence = %q", got[0])
	}
}

func TestSplit_emptyAndWhitespace(t *testing.T) {
	s := newSplitter(t)
	for _, in := range []string{"", "   ", "\n\n\t"} {
		if got := Collect(s.Split(in)); len(got) != 0 {
			t.Errorf("Split(%q) = %q, want nothing", in, got)
		}
	}
}

func TestSplit_restartable(t *testing.T) {
	s := newSplitter(t)
	seq := s.Split("One sentence here. Another one there. And a third.")
	first := Collect(seq)
	second := Collect(seq)
	if len(first) == 0 {
		t.Fatal("expected sentences")
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("second iteration differs: %q vs %q", first, second)
	}
}

func TestSplit_earlyBreak(t *testing.T) {
	s := newSplitter(t)
	n := 0
	for range s.Split("A b c. D e f. G h i.") {
		n++
		break
	}
	if n != 1 {
		t.Errorf("expected loop to stop after one sentence, got %d", n)
	}
}

func TestSplit_trimsSentences(t *testing.T) {
	s := newSplitter(t)
	for sent := range s.Split("  First line here.   Second line here.  ") {
		if sent != "First line here." && sent != "Second line here." {
			t.Errorf("untrimmed or unexpected sentence %q", sent)
		}
	}
}
