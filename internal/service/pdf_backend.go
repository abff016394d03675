package service

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/docley/docingest/internal/domain"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// NativePDFBackend validates PDFs with pdfcpu and reads positioned glyphs
// with ledongthuc/pdf. Both are pure Go.
type NativePDFBackend struct {
	wordGapRatio float64
}

// NewNativePDFBackend creates a backend that splits glyph runs on horizontal
// gaps wider than wordGapRatio times the font size.
func NewNativePDFBackend(wordGapRatio float64) *NativePDFBackend {
	disableConfigDir.Do(api.DisableConfigDir)
	if wordGapRatio <= 0 {
		wordGapRatio = DefaultWordGapRatio
	}
	return &NativePDFBackend{wordGapRatio: wordGapRatio}
}

// Probe parses the cross-reference table and document catalog. Encrypted
// files are only accepted when they open without a user password.
func (b *NativePDFBackend) Probe(data []byte) (PDFInfo, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadAndValidate(bytes.NewReader(data), conf)
	if err != nil {
		return PDFInfo{}, err
	}
	return PDFInfo{
		PageCount: ctx.PageCount,
		Encrypted: ctx.Encrypt != nil,
	}, nil
}

// Open returns a fresh reader over data.
func (b *NativePDFBackend) Open(data []byte) (PDFPageReader, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &glyphPageReader{reader: r, gapRatio: b.wordGapRatio}, nil
}

type glyphPageReader struct {
	reader   *pdf.Reader
	gapRatio float64
}

func (r *glyphPageReader) PageFragments(pageIndex int) ([]domain.TextFragment, error) {
	if pageIndex < 0 || pageIndex >= r.reader.NumPage() {
		return nil, fmt.Errorf("page %d out of range", pageIndex+1)
	}
	page := r.reader.Page(pageIndex + 1)
	if page.V.IsNull() {
		return nil, nil
	}

	content := page.Content()
	glyphs := make([]positionedGlyph, 0, len(content.Text))
	for _, t := range content.Text {
		glyphs = append(glyphs, positionedGlyph{
			X:        t.X,
			Y:        t.Y,
			W:        t.W,
			FontSize: t.FontSize,
			S:        t.S,
		})
	}
	return groupGlyphs(glyphs, pageIndex, r.gapRatio), nil
}
