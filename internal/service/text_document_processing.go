package service

import (
	"archive/zip"
	"fmt"
	"html"
	"io"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// conversion is the format-specific output handed to the assembler.
type conversion struct {
	PlainText string
	HTML      string
	PageCount int
	Warnings  []string
}

// decodeText decodes uploaded text. UTF-8 and UTF-16 byte order marks are
// honoured; invalid sequences become U+FFFD.
func decodeText(data []byte) string {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		decoded = data
	}
	return strings.ToValidUTF8(string(decoded), "\uFFFD")
}

// normalizePlainText keeps the decoded text as-is for plainText and wraps
// every non-blank line in a paragraph for the HTML rendering.
func normalizePlainText(text string) *conversion {
	var sb strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		sb.WriteString("<p>")
		sb.WriteString(html.EscapeString(line))
		sb.WriteString("</p>")
	}
	return &conversion{
		PlainText: text,
		HTML:      sb.String(),
	}
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	// Try exact match first.
	for _, f := range zr.File {
		if f.Name == name {
			return readZipEntry(f)
		}
	}
	// Then case-insensitive match.
	lower := strings.ToLower(name)
	for _, f := range zr.File {
		if strings.ToLower(f.Name) == lower {
			return readZipEntry(f)
		}
	}
	return nil, fmt.Errorf("file not found: %s", name)
}

func readZipEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "blockquote": true, "pre": true,
	"table": true, "tr": true, "td": true, "th": true, "br": true, "hr": true,
}

// StripMarkup returns the visible text of an HTML fragment: one line per
// block element, runs of whitespace collapsed to a single space.
func StripMarkup(fragment string) string {
	doc, err := xhtml.Parse(strings.NewReader(fragment))
	if err != nil || doc == nil {
		return ""
	}

	skip := map[string]bool{
		"script": true, "style": true, "head": true, "title": true,
	}

	var lines []string
	var cur strings.Builder
	flush := func() {
		if line := strings.Join(strings.Fields(cur.String()), " "); line != "" {
			lines = append(lines, line)
		}
		cur.Reset()
	}

	var walk func(n *xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.ElementNode {
			tag := strings.ToLower(n.Data)
			if skip[tag] {
				return
			}
			if blockTags[tag] {
				flush()
			}
		}
		if n.Type == xhtml.TextNode {
			cur.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == xhtml.ElementNode && blockTags[strings.ToLower(n.Data)] {
			flush()
		}
	}
	walk(doc)
	flush()

	return strings.Join(lines, "\n")
}

// normalizeText collapses whitespace so two renderings of the same text
// can be compared.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, "\u00a0", " ")), " ")
}

func countWords(s string) int {
	return len(strings.Fields(s))
}
