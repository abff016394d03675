package service

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/docley/docingest/internal/domain"
	ierrors "github.com/docley/docingest/pkg/errors"
)

type MockLogger struct {
	mu       sync.Mutex
	messages []string
}

func NewMockLogger() *MockLogger {
	return &MockLogger{
		messages: []string{},
	}
}

func (m *MockLogger) record(line string) {
	m.mu.Lock()
	m.messages = append(m.messages, line)
	m.mu.Unlock()
}

func (m *MockLogger) Info(msg string, args ...interface{}) {
	m.record("INFO: " + msg)
}

func (m *MockLogger) Error(msg string, err error, args ...interface{}) {
	m.record("ERROR: " + msg + " - " + err.Error())
}

func (m *MockLogger) Debug(msg string, args ...interface{}) {
	m.record("DEBUG: " + msg)
}

func (m *MockLogger) Warn(msg string, args ...interface{}) {
	m.record("WARN: " + msg)
}

func newTestIngestService(backend PDFBackend) *IngestService {
	logger := NewMockLogger()
	return NewIngestService(
		NewClassifier(twentyMiB),
		NewPDFProcessor(backend, PDFOptions{MaxPages: 50, Workers: 4}, logger),
		NewDocxConverter(1024*1024, logger),
		logger,
	)
}

func txtSource(text string) domain.SourceFile {
	return domain.SourceFile{
		Bytes:             []byte(text),
		DeclaredMediaType: "text/plain",
		SizeBytes:         int64(len(text)),
		FileName:          "notes.txt",
	}
}

func TestIngestService_Text(t *testing.T) {
	svc := newTestIngestService(newFakePDFBackend())

	result, err := svc.Ingest(context.Background(), txtSource("Hello there\nGeneral Kenobi\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Format != domain.FormatTXT {
		t.Errorf("expected txt, got %q", result.Format)
	}
	if result.PlainText != "Hello there\nGeneral Kenobi\n" {
		t.Errorf("unexpected plain text %q", result.PlainText)
	}
	if result.HTML != "<p>Hello there</p><p>General Kenobi</p>" {
		t.Errorf("unexpected html %q", result.HTML)
	}
	if result.WordCount != 4 {
		t.Errorf("expected 4 words, got %d", result.WordCount)
	}
	if result.FileName != "notes.txt" || result.FileSize != 27 {
		t.Errorf("unexpected file metadata %q/%d", result.FileName, result.FileSize)
	}
	if result.PageCount != 0 {
		t.Errorf("expected page count 0, got %d", result.PageCount)
	}
	if result.Warnings == nil || len(result.Warnings) != 0 {
		t.Errorf("expected an empty warnings list, got %#v", result.Warnings)
	}
}

func TestIngestService_PDF(t *testing.T) {
	backend := newFakePDFBackend(textPage("page", "one"), textPage("page", "two"))
	svc := newTestIngestService(backend)

	result, err := svc.Ingest(context.Background(), domain.SourceFile{
		Bytes:             []byte("%PDF-1.7"),
		DeclaredMediaType: "application/pdf",
		FileName:          "report.pdf",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Format != domain.FormatPDF || result.PageCount != 2 || result.WordCount != 4 {
		t.Errorf("unexpected result %+v", result)
	}
	if result.FileSize != 8 {
		t.Errorf("expected the payload length as file size, got %d", result.FileSize)
	}
	assertRoundTrip(t, result.HTML, result.PlainText)
}

func TestIngestService_DOCX(t *testing.T) {
	svc := newTestIngestService(newFakePDFBackend())
	data := styledDocx(t, para("Heading1", "Title")+para("", "Body text here"))

	result, err := svc.Ingest(context.Background(), domain.SourceFile{
		Bytes:             data,
		DeclaredMediaType: domain.MediaTypeDOCX,
		SizeBytes:         int64(len(data)),
		FileName:          "essay.docx",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HTML != "<h1>Title</h1><p>Body text here</p>" {
		t.Errorf("unexpected html %q", result.HTML)
	}
	if result.WordCount != 4 {
		t.Errorf("expected 4 words, got %d", result.WordCount)
	}
	assertRoundTrip(t, result.HTML, result.PlainText)
}

func TestIngestService_Idempotent(t *testing.T) {
	docx := imageDocx(t, "media/image1.png", "")
	sources := []domain.SourceFile{
		txtSource("same input\nsame output"),
		{Bytes: docx, DeclaredMediaType: "docx", FileName: "a.docx"},
		{Bytes: []byte("%PDF"), DeclaredMediaType: "pdf", FileName: "a.pdf"},
	}
	svc := newTestIngestService(newFakePDFBackend(textPage("a"), textPage("b"), textPage("c")))

	for _, source := range sources {
		t.Run(source.FileName, func(t *testing.T) {
			first, err := svc.Ingest(context.Background(), source)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			second, err := svc.Ingest(context.Background(), source)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			a, _ := json.Marshal(first)
			b, _ := json.Marshal(second)
			if string(a) != string(b) {
				t.Fatalf("results differ:\n%s\n%s", a, b)
			}
		})
	}
}

func TestIngestService_SizeBoundary(t *testing.T) {
	svc := newTestIngestService(newFakePDFBackend())

	exact := strings.Repeat("word ", twentyMiB/5)
	result, err := svc.Ingest(context.Background(), txtSource(exact))
	if err != nil {
		t.Fatalf("expected a 20 MiB file to succeed, got %v", err)
	}
	if result.FileSize != twentyMiB {
		t.Errorf("expected file size %d, got %d", twentyMiB, result.FileSize)
	}

	backend := newFakePDFBackend(textPage("never read"))
	svc = newTestIngestService(backend)
	_, err = svc.Ingest(context.Background(), domain.SourceFile{
		Bytes:             make([]byte, twentyMiB+1),
		DeclaredMediaType: "application/pdf",
	})
	if !ierrors.IsKind(err, ierrors.KindTooLarge) {
		t.Fatalf("expected too large, got %v", err)
	}
	if atomic.LoadInt32(&backend.probes) != 0 {
		t.Error("an oversized file must be rejected before parsing")
	}
}

func TestIngestService_DeclaredSizeTooLarge(t *testing.T) {
	svc := newTestIngestService(newFakePDFBackend())

	source := txtSource("small")
	source.SizeBytes = twentyMiB + 1
	_, err := svc.Ingest(context.Background(), source)
	if !ierrors.IsKind(err, ierrors.KindTooLarge) {
		t.Fatalf("expected too large, got %v", err)
	}
}

func TestIngestService_UnsupportedTypeNeverParsed(t *testing.T) {
	backend := newFakePDFBackend(textPage("never read"))
	svc := newTestIngestService(backend)

	for _, mediaType := range []string{"application/zip", "image/png", "", "application/msword"} {
		_, err := svc.Ingest(context.Background(), domain.SourceFile{
			Bytes:             []byte("%PDF-1.7"),
			DeclaredMediaType: mediaType,
		})
		if !ierrors.IsKind(err, ierrors.KindUnsupportedType) {
			t.Errorf("%q: expected unsupported type, got %v", mediaType, err)
		}
	}
	if atomic.LoadInt32(&backend.probes) != 0 {
		t.Error("an unsupported type must never reach a converter")
	}
}

func TestIngestService_PropagatesErrorKinds(t *testing.T) {
	corrupt := newFakePDFBackend(textPage("x"))
	corrupt.probeErr = errors.New("no xref")

	tests := []struct {
		name    string
		backend *fakePDFBackend
		source  domain.SourceFile
		kind    ierrors.Kind
	}{
		{
			name:    "corrupt pdf",
			backend: corrupt,
			source:  domain.SourceFile{Bytes: []byte("junk"), DeclaredMediaType: "application/pdf"},
			kind:    ierrors.KindCorruptOrEncrypted,
		},
		{
			name:    "image-only pdf",
			backend: newFakePDFBackend(nil, nil),
			source:  domain.SourceFile{Bytes: []byte("%PDF"), DeclaredMediaType: "application/pdf"},
			kind:    ierrors.KindEmptyExtraction,
		},
		{
			name:    "corrupt docx",
			backend: newFakePDFBackend(),
			source:  domain.SourceFile{Bytes: []byte("PK broken"), DeclaredMediaType: "docx"},
			kind:    ierrors.KindCorruptOrEncrypted,
		},
		{
			name:    "blank txt",
			backend: newFakePDFBackend(),
			source:  txtSource(" \n\t\n"),
			kind:    ierrors.KindEmptyExtraction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestIngestService(tt.backend)
			result, err := svc.Ingest(context.Background(), tt.source)
			if result != nil {
				t.Fatalf("expected no result, got %+v", result)
			}
			if !ierrors.IsKind(err, tt.kind) {
				t.Fatalf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestIngestService_EmptyPDFKeepsHint(t *testing.T) {
	svc := newTestIngestService(newFakePDFBackend(nil))

	_, err := svc.Ingest(context.Background(), domain.SourceFile{Bytes: []byte("%PDF"), DeclaredMediaType: "pdf"})
	var ie *ierrors.IngestError
	if !errors.As(err, &ie) {
		t.Fatalf("expected an IngestError, got %v", err)
	}
	if ie.Hint != emptyPDFHint {
		t.Errorf("expected the PDF hint, got %q", ie.Hint)
	}
}

func TestIngestService_EmptyDOCX(t *testing.T) {
	svc := newTestIngestService(newFakePDFBackend())
	data := styledDocx(t, `<w:p/>`)

	_, err := svc.Ingest(context.Background(), domain.SourceFile{Bytes: data, DeclaredMediaType: "docx"})
	if !ierrors.IsKind(err, ierrors.KindEmptyExtraction) {
		t.Fatalf("expected empty extraction, got %v", err)
	}
}

func TestIngestService_Cancelled(t *testing.T) {
	svc := newTestIngestService(newFakePDFBackend(textPage("a")))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Ingest(ctx, txtSource("text"))
	if !ierrors.IsKind(err, ierrors.KindInternalParseFailure) {
		t.Fatalf("expected internal parse failure, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in the chain, got %v", err)
	}
}

func TestIngestService_IngestText(t *testing.T) {
	svc := newTestIngestService(newFakePDFBackend())

	result, err := svc.IngestText(context.Background(), "pasted words\n\nsecond paragraph")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := &domain.ExtractionResult{
		Format:    domain.FormatTXT,
		PlainText: "pasted words\n\nsecond paragraph",
		HTML:      "<p>pasted words</p><p>second paragraph</p>",
		WordCount: 4,
		Warnings:  []string{},
	}
	if !reflect.DeepEqual(result, want) {
		t.Errorf("expected %+v, got %+v", want, result)
	}

	_, err = svc.IngestText(context.Background(), "   \n ")
	if !ierrors.IsKind(err, ierrors.KindEmptyExtraction) {
		t.Fatalf("expected empty extraction, got %v", err)
	}
}
