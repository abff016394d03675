package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	ierrors "github.com/docley/docingest/pkg/errors"

	"github.com/jung-kurt/gofpdf"
)

// renderPDF writes one page per entry, each page holding the given lines.
func renderPDF(t *testing.T, pages [][]string) []byte {
	t.Helper()

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(false)
	pdf.SetFont("Helvetica", "", 12)
	for _, lines := range pages {
		pdf.AddPage()
		for _, line := range lines {
			pdf.CellFormat(0, 10, line, "", 1, "L", false, 0, "")
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("failed to render pdf: %v", err)
	}
	return buf.Bytes()
}

func TestNativePDFBackend_Probe(t *testing.T) {
	data := renderPDF(t, [][]string{{"one"}, {"two"}, {"three"}})

	info, err := NewNativePDFBackend(DefaultWordGapRatio).Probe(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.PageCount != 3 {
		t.Errorf("expected 3 pages, got %d", info.PageCount)
	}
	if info.Encrypted {
		t.Error("expected an unencrypted document")
	}
}

func TestNativePDFBackend_ProbeRejectsGarbage(t *testing.T) {
	if _, err := NewNativePDFBackend(DefaultWordGapRatio).Probe([]byte("not a pdf at all")); err == nil {
		t.Fatal("expected an error for non-PDF bytes")
	}
}

func TestPDFProcessor_NativeBackend(t *testing.T) {
	data := renderPDF(t, [][]string{
		{"Alpha", "Bravo"},
		{},
		{"Gamma"},
	})
	processor := NewPDFProcessor(NewNativePDFBackend(DefaultWordGapRatio), PDFOptions{}, NewMockLogger())

	conv, err := processor.Process(context.Background(), data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	alpha := strings.Index(conv.PlainText, "Alpha")
	bravo := strings.Index(conv.PlainText, "Bravo")
	gamma := strings.Index(conv.PlainText, "Gamma")
	if alpha < 0 || bravo < 0 || gamma < 0 {
		t.Fatalf("expected all lines in output, got %q", conv.PlainText)
	}
	if !(alpha < bravo && bravo < gamma) {
		t.Errorf("lines out of order: %q", conv.PlainText)
	}
	if !strings.Contains(conv.PlainText[alpha:gamma], "\n") {
		t.Errorf("expected a line break between pages, got %q", conv.PlainText)
	}
	if conv.PageCount != 3 {
		t.Errorf("expected page count 3, got %d", conv.PageCount)
	}
	assertBalanced(t, conv.HTML)
	assertRoundTrip(t, conv.HTML, conv.PlainText)
}

func TestPDFProcessor_NativeBackendCorrupt(t *testing.T) {
	processor := NewPDFProcessor(NewNativePDFBackend(DefaultWordGapRatio), PDFOptions{}, NewMockLogger())

	_, err := processor.Process(context.Background(), []byte("%PDF-1.4\nbroken"))
	if !ierrors.IsKind(err, ierrors.KindCorruptOrEncrypted) {
		t.Fatalf("expected corrupt or encrypted, got %v", err)
	}
}

func TestPDFProcessor_NativeBackendImageOnly(t *testing.T) {
	data := renderPDF(t, [][]string{{}, {}})
	processor := NewPDFProcessor(NewNativePDFBackend(DefaultWordGapRatio), PDFOptions{}, NewMockLogger())

	_, err := processor.Process(context.Background(), data)
	if !ierrors.IsKind(err, ierrors.KindEmptyExtraction) {
		t.Fatalf("expected empty extraction, got %v", err)
	}
}
