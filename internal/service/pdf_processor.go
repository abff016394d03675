package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/docley/docingest/internal/domain"
	ierrors "github.com/docley/docingest/pkg/errors"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultPDFMaxPages bounds how many leading pages are read.
	DefaultPDFMaxPages = 50
	// DefaultPDFWorkers is the number of concurrent page readers.
	DefaultPDFWorkers = 4

	emptyPDFHint = "No readable text was found. The PDF may be scanned (image-only) or protected; paste the text instead."
)

// PDFInfo is what the probe learns about a PDF before any page is read.
type PDFInfo struct {
	PageCount int
	Encrypted bool
}

// PDFBackend opens PDF bytes for page-level text extraction.
type PDFBackend interface {
	// Probe validates the container and reports its page count.
	Probe(data []byte) (PDFInfo, error)
	// Open returns a page reader. Each call yields an independent reader.
	Open(data []byte) (PDFPageReader, error)
}

// PDFPageReader returns the positioned text fragments of one page, in
// content-stream order. Page indexes are zero-based.
type PDFPageReader interface {
	PageFragments(pageIndex int) ([]domain.TextFragment, error)
}

// PDFOptions configures a PDFProcessor. Zero values select the defaults.
type PDFOptions struct {
	MaxPages int
	Workers  int
	Layout   LayoutConfig
}

// PDFProcessor reconstructs per-page prose from positioned PDF text.
type PDFProcessor struct {
	backend  PDFBackend
	maxPages int
	workers  int
	layout   LayoutConfig
	logger   domain.Logger
}

// NewPDFProcessor creates a new PDF processor
func NewPDFProcessor(backend PDFBackend, opts PDFOptions, logger domain.Logger) *PDFProcessor {
	if opts.MaxPages <= 0 {
		opts.MaxPages = DefaultPDFMaxPages
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultPDFWorkers
	}
	return &PDFProcessor{
		backend:  backend,
		maxPages: opts.MaxPages,
		workers:  opts.Workers,
		layout:   opts.Layout.withDefaults(),
		logger:   logger,
	}
}

type pageResult struct {
	lines []string
	err   error
}

// Process extracts the first maxPages pages concurrently and reassembles
// them in page order. Pages past the cap are ignored with a warning.
func (p *PDFProcessor) Process(ctx context.Context, data []byte) (*conversion, error) {
	start := time.Now()

	info, err := p.backend.Probe(data)
	if err != nil {
		return nil, ierrors.NewCorruptOrEncrypted("PDF could not be opened", err)
	}

	var warnings []string
	if info.Encrypted {
		warnings = append(warnings, "PDF is encrypted; text was read without a password")
	}
	pages := info.PageCount
	if pages > p.maxPages {
		pages = p.maxPages
		warnings = append(warnings, fmt.Sprintf("only the first %d of %d pages were processed", pages, info.PageCount))
	}

	results, err := p.extractPages(ctx, data, pages)
	if err != nil {
		return nil, err
	}

	var plainPages, htmlPages []string
	for i, res := range results {
		if res.err != nil {
			p.logger.Warn("PDF page could not be read", "page", i+1, "error", res.err)
			warnings = append(warnings, fmt.Sprintf("page %d could not be read", i+1))
			continue
		}
		if len(res.lines) == 0 {
			continue
		}
		plainPages = append(plainPages, strings.Join(res.lines, "\n"))
		htmlPages = append(htmlPages, pageHTML(res.lines))
	}

	plainText := strings.Join(plainPages, "\n\n")
	if strings.TrimSpace(plainText) == "" {
		return nil, ierrors.NewEmptyExtraction("PDF contains no extractable text", emptyPDFHint)
	}

	p.logger.Debug("PDF reconstructed",
		"pages", pages,
		"total_pages", info.PageCount,
		"text_pages", len(plainPages),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &conversion{
		PlainText: plainText,
		HTML:      strings.Join(htmlPages, "<hr/>"),
		PageCount: info.PageCount,
		Warnings:  warnings,
	}, nil
}

// extractPages scatters page indexes over a bounded set of workers, each with
// its own reader, and gathers results into an index-addressed slice.
func (p *PDFProcessor) extractPages(ctx context.Context, data []byte, pages int) ([]pageResult, error) {
	results := make([]pageResult, pages)
	if pages == 0 {
		return results, nil
	}

	workers := p.workers
	if workers > pages {
		workers = pages
	}

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int)

	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < pages; i++ {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			reader, err := p.backend.Open(data)
			if err != nil {
				return ierrors.NewCorruptOrEncrypted("PDF could not be opened", err)
			}
			for i := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				p.logger.Debug("PDF processing page", "page", i+1, "total", pages)
				results[i] = p.readPage(reader, i)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ierrors.NewInternalParseFailure("PDF extraction was cancelled", ctxErr)
		}
		if _, ok := ierrors.KindOf(err); ok {
			return nil, err
		}
		return nil, ierrors.NewInternalParseFailure("PDF extraction failed", err)
	}
	return results, nil
}

// readPage folds one page into lines. A panic inside the backend fails only
// that page.
func (p *PDFProcessor) readPage(reader PDFPageReader, index int) (res pageResult) {
	defer func() {
		if r := recover(); r != nil {
			res = pageResult{err: fmt.Errorf("panic: %v", r)}
		}
	}()

	fragments, err := reader.PageFragments(index)
	if err != nil {
		return pageResult{err: err}
	}
	return pageResult{lines: ReconstructLines(fragments, p.layout.LineBreakThreshold)}
}

// pageHTML wraps a page's lines in one paragraph with explicit line breaks.
func pageHTML(lines []string) string {
	escaped := make([]string, len(lines))
	for i, line := range lines {
		escaped[i] = html.EscapeString(line)
	}
	return "<p>" + strings.Join(escaped, "<br/>") + "</p>"
}
