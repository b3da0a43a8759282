package extract

import (
	"strings"

	"github.com/hyperjump/kiku/internal/fileid"
	"github.com/hyperjump/kiku/internal/models"
)

// paragraph is one display unit of a document with its positional id.
type paragraph struct {
	id   string
	text string
	page int // 0 when the source is not paged
}

// indexedParagraphs numbers texts by position, keeping the index of empty entries.
func indexedParagraphs(sourceName string, texts []string) []paragraph {
	out := make([]paragraph, len(texts))
	for i, t := range texts {
		out[i] = paragraph{id: fileid.ParagraphID(sourceName, i), text: t}
	}
	return out
}

// pdfParagraphs flattens per-page blocks; pages are numbered from 1 and blocks from 0.
func pdfParagraphs(sourceName string, pages [][]string) []paragraph {
	var out []paragraph
	for p, blocks := range pages {
		for b, text := range blocks {
			out = append(out, paragraph{id: fileid.PageBlockID(sourceName, p+1, b), text: text, page: p + 1})
		}
	}
	return out
}

// paragraphRecords emits one record per sentence. Paragraphs that are empty after
// trimming produce nothing.
func (r *Router) paragraphRecords(st models.SourceType, sourceName string, paras []paragraph) []models.Record {
	var out []models.Record
	for _, p := range paras {
		text := strings.TrimSpace(p.text)
		if text == "" {
			continue
		}
		idx := 0
		for s := range r.splitter.Split(text) {
			loc := &models.TextLocator{ParagraphID: p.id, SentenceIndex: idx}
			if p.page > 0 {
				page := p.page
				loc.Page = &page
			}
			out = append(out, models.Record{
				EmbeddingText: s,
				DisplayText:   text,
				SourceType:    st,
				SourceName:    sourceName,
				TextLocator:   loc,
			})
			idx++
		}
	}
	return out
}
