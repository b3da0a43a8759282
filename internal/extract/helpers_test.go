package extract

import (
	"archive/zip"
	"bytes"
	"iter"
	"strings"
	"testing"
)

// periodSplitter splits on ". " so paragraph logic can be tested without the Punkt model.
type periodSplitter struct{}

func (periodSplitter) Split(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, s := range strings.Split(text, ". ") {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			if !yield(s) {
				return
			}
		}
	}
}

func newTestRouter(t *testing.T, opts ...RouterOption) *Router {
	t.Helper()
	r, err := NewRouter(opts...)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return r
}

const docxHeader = `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`
const docxFooter = `</w:body></w:document>`

// docxWithBody returns a .docx zip whose word/document.xml wraps body.
func docxWithBody(body string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(docxHeader + body + docxFooter))
	_ = w.Close()
	return buf.Bytes()
}

// docxPara renders one paragraph with a single run.
func docxPara(text string) string {
	if text == "" {
		return `<w:p/>`
	}
	return `<w:p w:rsidR="00A1"><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

// minimalDocxWithContentTypes returns a .docx zip with [Content_Types].xml pointing to a custom document path.
func minimalDocxWithContentTypes(text, docPath string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	ct, _ := w.Create("[Content_Types].xml")
	_, _ = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override PartName="/` + docPath + `" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`))
	fw, _ := w.Create(docPath)
	_, _ = fw.Write([]byte(docxHeader + docxPara(text) + docxFooter))
	_ = w.Close()
	return buf.Bytes()
}
