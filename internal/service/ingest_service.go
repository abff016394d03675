package service

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/docley/docingest/internal/domain"
	ierrors "github.com/docley/docingest/pkg/errors"
)

// IngestService classifies a source, dispatches it to exactly one converter
// and assembles the canonical result. Typed errors from converters are
// returned unchanged.
type IngestService struct {
	classifier *Classifier
	pdf        *PDFProcessor
	docx       *DocxConverter
	logger     domain.Logger
}

func NewIngestService(
	classifier *Classifier,
	pdf *PDFProcessor,
	docx *DocxConverter,
	logger domain.Logger,
) *IngestService {
	return &IngestService{
		classifier: classifier,
		pdf:        pdf,
		docx:       docx,
		logger:     logger,
	}
}

// NewIngestServiceFromConfig wires the pipeline with the native PDF backend.
func NewIngestServiceFromConfig(cfg domain.Config, logger domain.Logger) *IngestService {
	layout := LayoutConfig{
		LineBreakThreshold: cfg.GetPDFLineBreakThreshold(),
		WordGapRatio:       cfg.GetPDFWordGapRatio(),
	}
	pdf := NewPDFProcessor(
		NewNativePDFBackend(layout.WordGapRatio),
		PDFOptions{MaxPages: cfg.GetPDFMaxPages(), Workers: cfg.GetPDFWorkers(), Layout: layout},
		logger,
	)
	return NewIngestService(
		NewClassifier(cfg.GetMaxFileSize()),
		pdf,
		NewDocxConverter(cfg.GetMaxInlineImageBytes(), logger),
		logger,
	)
}

// Ingest converts one uploaded file. Type and size are checked before any
// byte of the payload is parsed.
func (s *IngestService) Ingest(ctx context.Context, source domain.SourceFile) (*domain.ExtractionResult, error) {
	start := time.Now()

	format, err := s.classifier.Classify(source.DeclaredMediaType, source.Size())
	if err != nil {
		s.logger.Debug("ingestion rejected",
			"media_type", source.DeclaredMediaType,
			"size", source.Size(),
			"error", err,
		)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, ierrors.NewInternalParseFailure("ingestion was cancelled", err)
	}

	s.logger.Debug("ingestion dispatched", "format", format, "size", source.Size(), "file_name", source.FileName)

	conv, err := s.convert(ctx, format, source.Bytes)
	if err != nil {
		s.logger.Warn("ingestion failed", "format", format, "file_name", source.FileName, "error", err)
		return nil, err
	}

	result, err := assemble(format, conv)
	if err != nil {
		return nil, err
	}
	result.FileName = source.FileName
	result.FileSize = source.Size()

	s.logger.Info("document ingested",
		"format", format,
		"file_name", source.FileName,
		"word_count", result.WordCount,
		"page_count", result.PageCount,
		"warnings", len(result.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return result, nil
}

// IngestText converts pasted text. There is no file metadata on this path.
func (s *IngestService) IngestText(ctx context.Context, text string) (*domain.ExtractionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, ierrors.NewInternalParseFailure("ingestion was cancelled", err)
	}
	text = strings.ToValidUTF8(text, string(unicode.ReplacementChar))
	result, err := assemble(domain.FormatTXT, normalizePlainText(text))
	if err != nil {
		return nil, err
	}
	s.logger.Info("text ingested", "word_count", result.WordCount)
	return result, nil
}

func (s *IngestService) convert(ctx context.Context, format domain.Format, data []byte) (*conversion, error) {
	switch format {
	case domain.FormatPDF:
		return s.pdf.Process(ctx, data)
	case domain.FormatDOCX:
		return s.docx.Convert(data)
	case domain.FormatTXT:
		return normalizePlainText(decodeText(data)), nil
	default:
		return nil, ierrors.NewUnsupportedType(string(format))
	}
}

var emptyHints = map[domain.Format]string{
	domain.FormatPDF:  emptyPDFHint,
	domain.FormatDOCX: "The document has no readable text. It may contain only images; paste the text instead.",
	domain.FormatTXT:  "The text is empty. Paste or upload some text.",
}

// assemble validates non-emptiness and fills the derived fields.
func assemble(format domain.Format, conv *conversion) (*domain.ExtractionResult, error) {
	if conv == nil || strings.TrimSpace(conv.PlainText) == "" {
		return nil, ierrors.NewEmptyExtraction("no text could be extracted", emptyHints[format])
	}

	warnings := make([]string, len(conv.Warnings))
	copy(warnings, conv.Warnings)

	return &domain.ExtractionResult{
		Format:    format,
		PlainText: conv.PlainText,
		HTML:      conv.HTML,
		PageCount: conv.PageCount,
		WordCount: countWords(conv.PlainText),
		Warnings:  warnings,
	}, nil
}
