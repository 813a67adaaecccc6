package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/apperr"
)

func TestExtractPlainTextVerbatim(t *testing.T) {
	r := NewRegistry()
	content := "This short note fits in exactly fifty characters!"

	got, err := r.Extract("note.txt", "text/plain", []byte(content))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != content {
		t.Errorf("got %q, want input verbatim", got)
	}
}

func TestExtractMarkdownVerbatim(t *testing.T) {
	r := NewRegistry()
	content := "# Heading\n\nSome *emphasis* kept as-is."

	got, err := r.Extract("readme.md", "text/markdown", []byte(content))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != content {
		t.Errorf("markdown not verbatim: %q", got)
	}
}

func TestExtractUnknownExtension(t *testing.T) {
	r := NewRegistry()

	_, err := r.Extract("data.xyz", "application/octet-stream", []byte{0x00})
	var uf *apperr.UnsupportedFormatError
	if !errors.As(err, &uf) {
		t.Fatalf("err = %v, want UnsupportedFormatError", err)
	}
	if uf.Name != "data.xyz" {
		t.Errorf("error names %q, want data.xyz", uf.Name)
	}
}

func TestExtractExtensionlessTextFallsBack(t *testing.T) {
	r := NewRegistry()

	got, err := r.Extract("NOTES", "text/plain; charset=utf-8", []byte("no extension"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "no extension" {
		t.Errorf("got %q", got)
	}
}

func TestExtractPDFPlaceholder(t *testing.T) {
	r := NewRegistry()

	got, err := r.Extract("paper.pdf", "application/pdf", []byte("%PDF-1.7"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if !strings.Contains(got, "not yet implemented") {
		t.Errorf("placeholder notice missing: %q", got)
	}
}

// buildDocx assembles a minimal OOXML package with the given
// WordprocessingML body.
func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestExtractDocxParagraphs(t *testing.T) {
	r := NewRegistry()
	doc := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>First paragraph</w:t></w:r></w:p>
    <w:p><w:r><w:t>Second</w:t></w:r><w:r><w:t xml:space="preserve"> half</w:t></w:r></w:p>
    <w:p><w:r><w:t>Col A</w:t><w:tab/><w:t>Col B</w:t></w:r></w:p>
  </w:body>
</w:document>`

	got, err := r.Extract("report.docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", buildDocx(t, doc))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "First paragraph\nSecond half\nCol A\tCol B"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractDocxCorruptContainer(t *testing.T) {
	r := NewRegistry()

	_, err := r.Extract("broken.docx", "", []byte("not a zip at all"))
	var ee *apperr.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want ExtractionError", err)
	}
	if ee.Name != "broken.docx" {
		t.Errorf("error names %q, want broken.docx", ee.Name)
	}
}

func TestExtractDocxMissingDocumentXML(t *testing.T) {
	r := NewRegistry()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("word/styles.xml")
	w.Write([]byte("<styles/>"))
	zw.Close()

	_, err := r.Extract("empty.docx", "", buf.Bytes())
	var ee *apperr.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want ExtractionError", err)
	}
}
