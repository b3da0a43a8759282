package extract

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// defaultLineHeight is used when a glyph reports no font size.
	defaultLineHeight = 12.0
	// blockGapFactor is the vertical gap, in line heights, that starts a new block.
	blockGapFactor = 1.5
	// wordGapFactor is the horizontal gap, in font sizes, that separates two words.
	wordGapFactor = 0.2
	// baselineTolerance is how far, in font sizes, glyphs on one line may drift vertically.
	baselineTolerance = 0.3
)

// textLine is one line of text on a PDF page. Y grows upwards, as in PDF user space.
type textLine struct {
	Y    float64
	Size float64
	Text string
}

// pdfPageBlocks returns, for every page in order, its paragraph-like text blocks.
// Blank pages yield an empty slice so page numbering stays aligned.
func pdfPageBlocks(content []byte) (pages [][]string, err error) {
	// The PDF reader panics on some malformed inputs.
	defer func() {
		if p := recover(); p != nil {
			pages, err = nil, fmt.Errorf("parse PDF: %v", p)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	pages = make([][]string, r.NumPage())
	for i := range pages {
		page := r.Page(i + 1)
		if page.V.IsNull() {
			continue
		}
		pages[i] = groupBlocks(pageLines(page.Content().Text))
	}
	return pages, nil
}

// pageLines groups glyphs that share a baseline into lines. Glyph positions come
// from Content, which tracks both Tm and Td placement; GetTextByRow reports every
// Td-placed glyph at row 0.
func pageLines(glyphs []pdf.Text) []textLine {
	var groups [][]pdf.Text
	for _, g := range glyphs {
		tol := baselineTolerance * fontSizeOr(g.FontSize)
		found := -1
		for j := len(groups) - 1; j >= 0; j-- {
			if math.Abs(groups[j][0].Y-g.Y) <= tol {
				found = j
				break
			}
		}
		if found < 0 {
			groups = append(groups, []pdf.Text{g})
			continue
		}
		groups[found] = append(groups[found], g)
	}
	lines := make([]textLine, 0, len(groups))
	for _, grp := range groups {
		lines = append(lines, lineFromGlyphs(grp))
	}
	return lines
}

func lineFromGlyphs(glyphs []pdf.Text) textLine {
	sort.SliceStable(glyphs, func(i, j int) bool { return glyphs[i].X < glyphs[j].X })

	var b strings.Builder
	var size, prevEnd float64
	for i, g := range glyphs {
		if g.FontSize > size {
			size = g.FontSize
		}
		if i > 0 && g.X-prevEnd > wordGapFactor*fontSizeOr(g.FontSize) &&
			!strings.HasSuffix(b.String(), " ") && !strings.HasPrefix(g.S, " ") {
			b.WriteByte(' ')
		}
		b.WriteString(g.S)
		prevEnd = g.X + g.W
	}
	return textLine{Y: glyphs[0].Y, Size: size, Text: strings.TrimSpace(b.String())}
}

func fontSizeOr(size float64) float64 {
	if size <= 0 {
		return defaultLineHeight
	}
	return size
}

// groupBlocks orders lines top to bottom and starts a new block wherever the vertical
// gap between consecutive lines exceeds blockGapFactor line heights. Lines inside a
// block are joined with single spaces.
func groupBlocks(lines []textLine) []string {
	kept := make([]textLine, 0, len(lines))
	for _, l := range lines {
		if strings.TrimSpace(l.Text) != "" {
			kept = append(kept, l)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Y > kept[j].Y })

	var blocks []string
	var cur []string
	for i, l := range kept {
		if i > 0 {
			prev := kept[i-1]
			height := max(fontSizeOr(prev.Size), fontSizeOr(l.Size))
			if prev.Y-l.Y > blockGapFactor*height {
				blocks = append(blocks, strings.Join(cur, " "))
				cur = nil
			}
		}
		cur = append(cur, strings.TrimSpace(l.Text))
	}
	if len(cur) > 0 {
		blocks = append(blocks, strings.Join(cur, " "))
	}
	return blocks
}
