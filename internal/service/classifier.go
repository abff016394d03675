package service

import (
	"mime"
	"strings"

	"github.com/docley/docingest/internal/domain"
	ierrors "github.com/docley/docingest/pkg/errors"
)

// Classifier resolves the declared media type of an upload to a Format and
// enforces the size ceiling. It never looks at the payload.
type Classifier struct {
	maxBytes int64
}

// NewClassifier creates a classifier with the given size ceiling in bytes.
func NewClassifier(maxBytes int64) *Classifier {
	return &Classifier{maxBytes: maxBytes}
}

// Classify returns the format for declaredMediaType, or an UnsupportedType or
// TooLarge error. A size equal to the ceiling is accepted.
func (c *Classifier) Classify(declaredMediaType string, size int64) (domain.Format, error) {
	format, ok := ParseMediaType(declaredMediaType)
	if !ok {
		return "", ierrors.NewUnsupportedType(declaredMediaType)
	}
	if size > c.maxBytes {
		return "", ierrors.NewTooLarge(size, c.maxBytes)
	}
	return format, nil
}

var mediaTypeFormats = map[string]domain.Format{
	domain.MediaTypePDF:  domain.FormatPDF,
	"application/x-pdf":  domain.FormatPDF,
	domain.MediaTypeDOCX: domain.FormatDOCX,
	domain.MediaTypeTXT:  domain.FormatTXT,
}

var extensionFormats = map[string]domain.Format{
	"pdf":  domain.FormatPDF,
	"docx": domain.FormatDOCX,
	"txt":  domain.FormatTXT,
	"text": domain.FormatTXT,
}

// ParseMediaType maps a MIME type (parameters allowed) or a bare file
// extension to a Format.
func ParseMediaType(declared string) (domain.Format, bool) {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if declared == "" {
		return "", false
	}
	if !strings.Contains(declared, "/") {
		f, ok := extensionFormats[strings.TrimPrefix(declared, ".")]
		return f, ok
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return "", false
	}
	f, ok := mediaTypeFormats[mediaType]
	return f, ok
}
