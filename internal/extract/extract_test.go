package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"
)

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip entry: %v", err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatalf("write zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestTextFromDocx(t *testing.T) {
	data := buildDocx(t, `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Payslip for period ending 30 June.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Superannuation paid quarterly.</w:t></w:r></w:p>
  </w:body>
</w:document>`)

	text, err := Text(context.Background(), data, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "payslip.docx")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != "Payslip for period ending 30 June.\nSuperannuation paid quarterly." {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTextDocxSniffedFromZipMime(t *testing.T) {
	data := buildDocx(t, `<w:document xmlns:w="x"><w:body><w:p><w:r><w:t>STP report</w:t></w:r></w:p></w:body></w:document>`)

	text, err := Text(context.Background(), data, "application/zip", "report.docx")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != "STP report" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTextPlain(t *testing.T) {
	text, err := Text(context.Background(), []byte("  award classification notes \n"), "text/plain; charset=utf-8", "notes.txt")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if text != "award classification notes" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestTextUnsupportedMime(t *testing.T) {
	_, err := Text(context.Background(), []byte{0x89, 0x50}, "image/png", "scan.png")
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestStripDocxXMLKeepsParagraphBreaks(t *testing.T) {
	out := stripDocxXML(`<d><p>first</p><p>second</p></d>`)
	if out != "first\nsecond" {
		t.Fatalf("unexpected output %q", out)
	}
}
