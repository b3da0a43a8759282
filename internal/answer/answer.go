// Package answer turns retrieved records into a grounded prompt and asks a chat model to answer it.
package answer

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/kiku/internal/models"
	"github.com/hyperjump/kiku/pkg/utils"
)

// IDontKnow is returned without calling the model when nothing was retrieved.
const IDontKnow = "I don't know"

const promptTemplate = `
You are a helpful AI assistant.
Answer the user's question using ONLY the reference context below.
If the answer is not present in the context, say "I don't know".

### Reference Context:
%s

### User Question:
%s

### Answer:
`

// Generator produces a completion for a single user prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// BuildContext numbers results from 1 as "[i] <context> (Source: <name>)" and joins them with blank lines.
func BuildContext(results []*models.SearchResult) string {
	blocks := make([]string, len(results))
	for i, r := range results {
		source := r.SourceName
		if source == "" {
			source = "unknown"
		}
		blocks[i] = fmt.Sprintf("[%d] %s (Source: %s)", i+1, r.Context(), source)
	}
	return strings.Join(blocks, "\n\n")
}

// BuildPrompt embeds the context block and the question in the answer prompt.
func BuildPrompt(question string, results []*models.SearchResult) string {
	return fmt.Sprintf(promptTemplate, BuildContext(results), question)
}

// Answerer asks a Generator to answer questions from retrieved context.
type Answerer struct {
	gen    Generator
	logger *zap.Logger
}

// NewAnswerer creates an Answerer. logger may be nil.
func NewAnswerer(gen Generator, logger *zap.Logger) *Answerer {
	return &Answerer{gen: gen, logger: utils.OrNop(logger)}
}

// Answer returns the model's trimmed answer, or IDontKnow when results is empty.
func (a *Answerer) Answer(ctx context.Context, question string, results []*models.SearchResult) (string, error) {
	if len(results) == 0 {
		return IDontKnow, nil
	}
	a.logger.Debug("asking model", zap.Int("context_blocks", len(results)))
	out, err := a.gen.Generate(ctx, BuildPrompt(question, results))
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return strings.TrimSpace(out), nil
}
