// Package extract converts raw uploaded files into plain text, dispatched
// by file extension or declared media type.
package extract

import (
	"path/filepath"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
)

// Extractor converts one file format to plain text. Implementations are
// stateless and safe for concurrent use.
type Extractor interface {
	// Extract returns the complete extracted text or an error; it never
	// produces a truncated partial result.
	Extract(name string, data []byte) (string, error)

	// Extensions returns the file extensions this extractor handles,
	// with the leading dot.
	Extensions() []string
}

// Registry routes files to extractors by lowercase extension.
type Registry struct {
	byExt map[string]Extractor
}

// NewRegistry returns a registry with the standard extractors registered:
// plain text and Markdown (verbatim), DOCX (structural XML parse), and
// the documented PDF and HWP placeholders.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	r.Register(textExtractor{})
	r.Register(docxExtractor{})
	r.Register(stubExtractor{
		exts: []string{".pdf"},
		notice: "[PDF text extraction is not yet implemented. " +
			"The document was stored, but its text content is unavailable for summarization and chat.]",
	})
	r.Register(stubExtractor{
		exts: []string{".hwp"},
		notice: "[HWP text extraction is not yet implemented. " +
			"The document was stored, but its text content is unavailable for summarization and chat.]",
	})
	return r
}

// Register associates an extractor with each of its extensions.
func (r *Registry) Register(e Extractor) {
	for _, ext := range e.Extensions() {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.byExt[ext] = e
	}
}

// Extract dispatches on the file's extension, falling back to the
// declared media type for extensionless text uploads. Unknown types fail
// with apperr.UnsupportedFormatError carrying the file name.
func (r *Registry) Extract(name, mediaType string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	e, ok := r.byExt[ext]
	if !ok && strings.HasPrefix(mediaType, "text/") {
		e, ok = textExtractor{}, true
	}
	if !ok {
		return "", &apperr.UnsupportedFormatError{Name: name}
	}
	text, err := e.Extract(name, data)
	if err != nil {
		return "", &apperr.ExtractionError{Name: name, Err: err}
	}
	return text, nil
}

// textExtractor decodes plain text and Markdown verbatim.
type textExtractor struct{}

func (textExtractor) Extract(_ string, data []byte) (string, error) {
	return string(data), nil
}

func (textExtractor) Extensions() []string {
	return []string{".txt", ".text", ".md", ".markdown"}
}

// stubExtractor returns a fixed placeholder notice for formats that are
// recognized but not implemented. A documented limitation, not a silent
// wrong answer.
type stubExtractor struct {
	exts   []string
	notice string
}

func (s stubExtractor) Extract(string, []byte) (string, error) {
	return s.notice, nil
}

func (s stubExtractor) Extensions() []string {
	return s.exts
}
