package service

import (
	"testing"

	"github.com/docley/docingest/internal/domain"
	ierrors "github.com/docley/docingest/pkg/errors"
)

const twentyMiB = 20 * 1024 * 1024

func TestParseMediaType(t *testing.T) {
	tests := []struct {
		declared string
		want     domain.Format
		ok       bool
	}{
		{"application/pdf", domain.FormatPDF, true},
		{"application/x-pdf", domain.FormatPDF, true},
		{"APPLICATION/PDF", domain.FormatPDF, true},
		{domain.MediaTypeDOCX, domain.FormatDOCX, true},
		{"text/plain", domain.FormatTXT, true},
		{"text/plain; charset=utf-8", domain.FormatTXT, true},
		{"pdf", domain.FormatPDF, true},
		{".docx", domain.FormatDOCX, true},
		{"txt", domain.FormatTXT, true},
		{"application/msword", "", false},
		{"image/png", "", false},
		{"text/html", "", false},
		{"doc", "", false},
		{"", "", false},
		{"text/plain; charset", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.declared, func(t *testing.T) {
			got, ok := ParseMediaType(tt.declared)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseMediaType(%q) = (%q, %v), want (%q, %v)", tt.declared, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestClassifier_SizeBoundary(t *testing.T) {
	classifier := NewClassifier(twentyMiB)

	format, err := classifier.Classify("application/pdf", twentyMiB)
	if err != nil {
		t.Fatalf("expected exactly 20 MiB to pass, got %v", err)
	}
	if format != domain.FormatPDF {
		t.Errorf("expected pdf, got %q", format)
	}

	_, err = classifier.Classify("application/pdf", twentyMiB+1)
	if !ierrors.IsKind(err, ierrors.KindTooLarge) {
		t.Fatalf("expected too large, got %v", err)
	}
}

func TestClassifier_UnsupportedType(t *testing.T) {
	classifier := NewClassifier(twentyMiB)

	_, err := classifier.Classify("application/zip", 10)
	if !ierrors.IsKind(err, ierrors.KindUnsupportedType) {
		t.Fatalf("expected unsupported type, got %v", err)
	}

	// The type is checked first, so an oversized unsupported file reports its type.
	_, err = classifier.Classify("image/png", twentyMiB+1)
	if !ierrors.IsKind(err, ierrors.KindUnsupportedType) {
		t.Fatalf("expected unsupported type, got %v", err)
	}
}
