package service

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/docley/docingest/internal/domain"
)

const (
	// DefaultLineBreakThreshold is the baseline delta, in layout units, above
	// which two fragments sit on different visual lines.
	DefaultLineBreakThreshold = 3.0
	// DefaultWordGapRatio is the horizontal gap, as a fraction of the font
	// size, that separates two glyph runs on the same baseline.
	DefaultWordGapRatio = 0.3

	// glyphs closer than this share a baseline
	baselineTolerance = 0.5
)

// LayoutConfig holds the tuned constants of the line reconstruction
// heuristic. They are empirical and can misjoin multi-column, rotated or
// vertically set text.
type LayoutConfig struct {
	LineBreakThreshold float64
	WordGapRatio       float64
}

// DefaultLayoutConfig returns the stock heuristic constants.
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		LineBreakThreshold: DefaultLineBreakThreshold,
		WordGapRatio:       DefaultWordGapRatio,
	}
}

func (c LayoutConfig) withDefaults() LayoutConfig {
	if c.LineBreakThreshold <= 0 {
		c.LineBreakThreshold = DefaultLineBreakThreshold
	}
	if c.WordGapRatio <= 0 {
		c.WordGapRatio = DefaultWordGapRatio
	}
	return c
}

// lineAccumulator is the state carried across a page's fragments.
type lineAccumulator struct {
	started       bool
	lastBaselineY float64
	buffer        string
	lines         []string
}

// add folds one fragment into the accumulator. A baseline jump larger than
// threshold closes the current line first.
func (a lineAccumulator) add(f domain.TextFragment, threshold float64) lineAccumulator {
	if f.Text == "" {
		return a
	}
	if a.started && math.Abs(f.BaselineY-a.lastBaselineY) > threshold {
		a.lines = appendLine(a.lines, a.buffer)
		a.buffer = ""
	}
	a.buffer = joinFragment(a.buffer, f.Text)
	a.lastBaselineY = f.BaselineY
	a.started = true
	return a
}

func (a lineAccumulator) finish() []string {
	return appendLine(a.lines, a.buffer)
}

// ReconstructLines turns a page's fragments, in source order, into visual
// lines. Fragments are never reordered spatially.
func ReconstructLines(fragments []domain.TextFragment, threshold float64) []string {
	var acc lineAccumulator
	for _, f := range fragments {
		acc = acc.add(f, threshold)
	}
	return acc.finish()
}

// joinFragment appends text to buf with a single separating space unless
// either side already carries whitespace.
func joinFragment(buf, text string) string {
	if buf == "" {
		return text
	}
	if endsWithSpace(buf) || startsWithSpace(text) {
		return buf + text
	}
	return buf + " " + text
}

func appendLine(lines []string, line string) []string {
	if line = strings.TrimSpace(line); line != "" {
		return append(lines, line)
	}
	return lines
}

func endsWithSpace(s string) bool {
	r, size := utf8.DecodeLastRuneInString(s)
	return size > 0 && unicode.IsSpace(r)
}

func startsWithSpace(s string) bool {
	r, size := utf8.DecodeRuneInString(s)
	return size > 0 && unicode.IsSpace(r)
}

// positionedGlyph is one glyph as reported by the PDF content stream.
type positionedGlyph struct {
	X, Y     float64
	W        float64
	FontSize float64
	S        string
}

// groupGlyphs merges consecutive glyphs into fragments. A fragment ends when
// the baseline changes, the pen moves backwards, or the horizontal gap
// exceeds gapRatio times the font size.
func groupGlyphs(glyphs []positionedGlyph, pageIndex int, gapRatio float64) []domain.TextFragment {
	var (
		fragments []domain.TextFragment
		buf       strings.Builder
		baseline  float64
		prevEnd   float64
		open      bool
	)

	flush := func() {
		if text := stripControlChars(buf.String()); text != "" {
			fragments = append(fragments, domain.TextFragment{
				Text:      text,
				BaselineY: baseline,
				PageIndex: pageIndex,
				ItemIndex: len(fragments),
			})
		}
		buf.Reset()
		open = false
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		if open {
			fontSize := g.FontSize
			if fontSize <= 0 {
				fontSize = 10
			}
			gap := g.X - prevEnd
			newBaseline := math.Abs(g.Y-baseline) > baselineTolerance
			if newBaseline || gap > gapRatio*fontSize || gap < -fontSize {
				flush()
			}
		}
		if !open {
			baseline = g.Y
			open = true
		}
		buf.WriteString(g.S)
		prevEnd = g.X + g.W
	}
	if open {
		flush()
	}
	return fragments
}

// stripControlChars drops NUL and other C0 control characters, which
// PostgreSQL rejects in text columns. Tabs and newlines become spaces.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			return ' '
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, s)
}
