// Package sentence splits paragraph-level text into sentences using a trained
// Punkt model for English, so abbreviations such as "Dr." or "e.g." do not end a sentence.
package sentence

import (
	"iter"
	"strings"
	"sync"

	"github.com/neurosnap/sentences"
	"github.com/neurosnap/sentences/english"
)

// Splitter splits text into trimmed, non-empty sentences.
type Splitter interface {
	Split(text string) iter.Seq[string]
}

// PunktSplitter is a Splitter backed by the Punkt sentence tokenizer.
// It is safe for concurrent use; the tokenizer holds only read-only parameters.
type PunktSplitter struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

// NewPunktSplitter loads the bundled English Punkt parameters.
func NewPunktSplitter() (*PunktSplitter, error) {
	tok, err := english.NewSentenceTokenizer(nil)
	if err != nil {
		return nil, err
	}
	return &PunktSplitter{tokenizer: tok}, nil
}

var (
	defaultOnce     sync.Once
	defaultSplitter *PunktSplitter
	defaultErr      error
)

// Default returns a shared PunktSplitter, loading the model on first use.
func Default() (*PunktSplitter, error) {
	defaultOnce.Do(func() {
		defaultSplitter, defaultErr = NewPunktSplitter()
	})
	return defaultSplitter, defaultErr
}

// Split returns the sentences of text. The sequence is computed on each range,
// so it can be iterated more than once and yields the same values every time.
func (s *PunktSplitter) Split(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}
		for _, sent := range s.tokenizer.Tokenize(text) {
			t := strings.TrimSpace(sent.Text)
			if t == "" {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

// Collect drains a sentence sequence into a slice.
func Collect(seq iter.Seq[string]) []string {
	var out []string
	for s := range seq {
		out = append(out, s)
	}
	return out
}
