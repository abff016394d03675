package service

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"path"
	"strings"

	"github.com/docley/docingest/internal/domain"
	ierrors "github.com/docley/docingest/pkg/errors"

	"github.com/microcosm-cc/bluemonday"
)

// DocxConverter renders a word-processing package as semantic HTML.
// Paragraph styles map to headings, character styles and direct formatting
// map to strong/em, numbered paragraphs become lists and embedded images
// are inlined as data URIs.
type DocxConverter struct {
	images ImageInliner
	policy *bluemonday.Policy
	logger domain.Logger
}

// NewDocxConverter creates a converter that inlines images up to maxImageBytes.
func NewDocxConverter(maxImageBytes int64, logger domain.Logger) *DocxConverter {
	policy := bluemonday.UGCPolicy()
	policy.AllowDataURIImages()
	return &DocxConverter{
		images: ImageInliner{MaxBytes: maxImageBytes},
		policy: policy,
		logger: logger,
	}
}

type docxRunKind int

const (
	runText docxRunKind = iota
	runBreak
	runImage
)

type docxRun struct {
	kind   docxRunKind
	text   string
	bold   bool
	italic bool
	style  string
	relID  string
	alt    string
}

type docxParagraph struct {
	style string
	numID string
	level string
	runs  []docxRun
}

type docxPackage struct {
	zr           *zip.Reader
	mainPart     string
	document     []byte
	rels         map[string]xmlRelationship
	styles       map[string]string
	ordered      map[string]map[string]bool
	defaultTypes map[string]string
	overrides    map[string]string
}

// Convert produces sanitized HTML and its stripped plain text.
func (c *DocxConverter) Convert(data []byte) (conv *conversion, err error) {
	defer func() {
		if r := recover(); r != nil {
			conv = nil
			err = ierrors.NewInternalParseFailure("docx conversion failed", fmt.Errorf("panic: %v", r))
		}
	}()

	pkg, err := openDocxPackage(data)
	if err != nil {
		return nil, err
	}

	paragraphs, err := parseDocxBody(pkg.document)
	if err != nil {
		return nil, ierrors.NewCorruptOrEncrypted("DOCX document body is not valid XML", err)
	}

	raw, warnings := c.render(pkg, paragraphs)
	sanitized := c.policy.Sanitize(raw)

	c.logger.Debug("docx converted", "paragraphs", len(paragraphs), "warnings", len(warnings))

	return &conversion{
		PlainText: StripMarkup(sanitized),
		HTML:      sanitized,
		Warnings:  warnings,
	}, nil
}

func openDocxPackage(data []byte) (*docxPackage, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, ierrors.NewCorruptOrEncrypted("file is not a readable DOCX package", err)
	}

	pkg := &docxPackage{
		zr:       zr,
		mainPart: "word/document.xml",
		rels:     map[string]xmlRelationship{},
		styles:   map[string]string{},
		ordered:  map[string]map[string]bool{},
	}

	if b, err := readZipFile(zr, "_rels/.rels"); err == nil {
		for _, rel := range parseRelationships(b) {
			if strings.HasSuffix(rel.Type, "/officeDocument") {
				pkg.mainPart = strings.TrimPrefix(path.Clean("/"+rel.Target), "/")
				break
			}
		}
	}

	pkg.document, err = readZipFile(zr, pkg.mainPart)
	if err != nil {
		return nil, ierrors.NewCorruptOrEncrypted("DOCX package has no main document part", err)
	}

	relsPart := path.Join(path.Dir(pkg.mainPart), "_rels", path.Base(pkg.mainPart)+".rels")
	if b, err := readZipFile(zr, relsPart); err == nil {
		for _, rel := range parseRelationships(b) {
			pkg.rels[rel.ID] = rel
		}
	}

	stylesPart, numberingPart := "word/styles.xml", "word/numbering.xml"
	for _, rel := range pkg.rels {
		switch {
		case strings.HasSuffix(rel.Type, "/styles"):
			stylesPart = pkg.resolve(rel.Target)
		case strings.HasSuffix(rel.Type, "/numbering"):
			numberingPart = pkg.resolve(rel.Target)
		}
	}
	if b, err := readZipFile(zr, stylesPart); err == nil {
		pkg.styles = parseStyles(b)
	}
	if b, err := readZipFile(zr, numberingPart); err == nil {
		pkg.ordered = parseNumbering(b)
	}
	if b, err := readZipFile(zr, "[Content_Types].xml"); err == nil {
		pkg.defaultTypes, pkg.overrides = parseContentTypes(b)
	}

	return pkg, nil
}

// resolve maps a relationship target to a zip entry name.
func (p *docxPackage) resolve(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join(path.Dir(p.mainPart), target))
}

func (p *docxPackage) contentType(part string) string {
	if ct, ok := p.overrides["/"+part]; ok {
		return ct
	}
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(part)), ".")
	return p.defaultTypes[ext]
}

// parseDocxBody walks document.xml and collects paragraphs in order.
func parseDocxBody(document []byte) ([]docxParagraph, error) {
	dec := xml.NewDecoder(bytes.NewReader(document))

	var (
		paragraphs []docxParagraph
		cur        *docxParagraph
		run        *docxRun
		depth      int
		inPPr      bool
		inRPr      bool
		inText     bool
		alt        string
	)

	flushText := func() {
		if cur != nil && run != nil && run.text != "" {
			cur.runs = append(cur.runs, *run)
			run.text = ""
		}
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "Fallback":
				// mc:AlternateContent repeats the Choice content here.
				if err := dec.Skip(); err != nil {
					return nil, err
				}
			case "p":
				depth++
				if depth == 1 {
					cur = &docxParagraph{}
				}
			case "pPr":
				inPPr = true
			case "pStyle":
				if inPPr && depth == 1 && cur != nil {
					cur.style = attrValue(t, "val")
				}
			case "numId":
				if inPPr && depth == 1 && cur != nil {
					cur.numID = attrValue(t, "val")
				}
			case "ilvl":
				if inPPr && depth == 1 && cur != nil {
					cur.level = attrValue(t, "val")
				}
			case "r":
				if cur != nil {
					flushText()
					run = &docxRun{kind: runText}
				}
			case "rPr":
				if run != nil && !inPPr {
					inRPr = true
				}
			case "rStyle":
				if inRPr {
					run.style = attrValue(t, "val")
				}
			case "b":
				if inRPr {
					run.bold = onOff(t)
				}
			case "i":
				if inRPr {
					run.italic = onOff(t)
				}
			case "t":
				if run != nil {
					inText = true
				}
			case "tab":
				if run != nil && !inPPr {
					run.text += "\t"
				}
			case "br", "cr":
				if run != nil && !inPPr {
					flushText()
					cur.runs = append(cur.runs, docxRun{kind: runBreak})
				}
			case "docPr":
				alt = attrValue(t, "descr")
			case "blip":
				if run != nil {
					if id := attrValue(t, "embed"); id != "" {
						flushText()
						cur.runs = append(cur.runs, docxRun{kind: runImage, relID: id, alt: alt})
						alt = ""
					}
				}
			case "imagedata":
				if run != nil {
					if id := attrValue(t, "id"); id != "" {
						flushText()
						cur.runs = append(cur.runs, docxRun{kind: runImage, relID: id, alt: attrValue(t, "title")})
					}
				}
			}

		case xml.CharData:
			if inText && run != nil {
				run.text += string(t)
			}

		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "rPr":
				inRPr = false
			case "pPr":
				inPPr = false
			case "r":
				flushText()
				run = nil
			case "p":
				if depth == 1 && cur != nil {
					paragraphs = append(paragraphs, *cur)
					cur = nil
				}
				depth--
			}
		}
	}

	return paragraphs, nil
}

func (c *DocxConverter) render(pkg *docxPackage, paragraphs []docxParagraph) (string, []string) {
	var (
		sb       strings.Builder
		warnings []string
		openList string
	)

	closeList := func() {
		if openList != "" {
			sb.WriteString("</" + openList + ">")
			openList = ""
		}
	}

	for _, para := range paragraphs {
		content, warns := c.renderRuns(pkg, para.runs)
		warnings = append(warnings, warns...)
		if strings.TrimSpace(StripMarkup(content)) == "" && !strings.Contains(content, "<img") {
			continue
		}

		level := docxHeadingLevel(pkg.styleName(para.style))
		if level == 0 && para.numID != "" && para.numID != "0" {
			listTag := "ul"
			if pkg.ordered[para.numID][orDefault(para.level, "0")] {
				listTag = "ol"
			}
			if openList != listTag {
				closeList()
				sb.WriteString("<" + listTag + ">")
				openList = listTag
			}
			sb.WriteString("<li>" + content + "</li>")
			continue
		}

		closeList()
		tag := "p"
		if level > 0 {
			tag = fmt.Sprintf("h%d", level)
		}
		sb.WriteString("<" + tag + ">" + content + "</" + tag + ">")
	}
	closeList()

	return sb.String(), warnings
}

func (c *DocxConverter) renderRuns(pkg *docxPackage, runs []docxRun) (string, []string) {
	var sb strings.Builder
	var warnings []string

	for _, r := range runs {
		switch r.kind {
		case runBreak:
			sb.WriteString("<br/>")
		case runImage:
			src, err := c.inlineImage(pkg, r.relID)
			if err != nil {
				c.logger.Warn("docx image omitted", "rel_id", r.relID, "error", err)
				warnings = append(warnings, fmt.Sprintf("image %s omitted: %v", r.relID, err))
				continue
			}
			sb.WriteString(`<img src="` + src + `" alt="` + html.EscapeString(r.alt) + `"/>`)
		default:
			text := html.EscapeString(strings.ReplaceAll(r.text, "\t", " "))
			charStyle := strings.ToLower(strings.ReplaceAll(pkg.styleName(r.style), " ", ""))
			if r.italic || charStyle == "emphasis" {
				text = "<em>" + text + "</em>"
			}
			if r.bold || charStyle == "strong" {
				text = "<strong>" + text + "</strong>"
			}
			sb.WriteString(text)
		}
	}

	return sb.String(), warnings
}

func (c *DocxConverter) inlineImage(pkg *docxPackage, relID string) (string, error) {
	rel, ok := pkg.rels[relID]
	if !ok {
		return "", fmt.Errorf("relationship not found")
	}
	if strings.EqualFold(rel.TargetMode, "External") {
		return "", fmt.Errorf("image is linked, not embedded")
	}
	part := pkg.resolve(rel.Target)
	data, err := readZipFile(pkg.zr, part)
	if err != nil {
		return "", err
	}
	return c.images.Inline(data, pkg.contentType(part))
}

// styleName returns the display name of a style id, or the id itself when
// the package has no styles part.
func (p *docxPackage) styleName(id string) string {
	if id == "" {
		return ""
	}
	if name, ok := p.styles[id]; ok && name != "" {
		return name
	}
	return id
}

// docxHeadingLevel extracts the heading level from a paragraph style name.
// e.g. "heading 1" → 1, "Heading2" → 2, "Title" → 1, "Subtitle" → 2.
func docxHeadingLevel(style string) int {
	lower := strings.ToLower(strings.ReplaceAll(style, " ", ""))

	if lower == "title" {
		return 1
	}
	if lower == "subtitle" {
		return 2
	}

	for _, prefix := range []string{"heading", "titre", "überschrift"} {
		if strings.HasPrefix(lower, prefix) {
			rest := lower[len(prefix):]
			if len(rest) == 1 && rest[0] >= '1' && rest[0] <= '6' {
				return int(rest[0] - '0')
			}
		}
	}
	return 0
}

func attrValue(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// onOff reads a toggle property such as <w:b/> or <w:b w:val="false"/>.
func onOff(se xml.StartElement) bool {
	switch strings.ToLower(attrValue(se, "val")) {
	case "false", "0", "off", "none":
		return false
	}
	return true
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

type xmlRelationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

func parseRelationships(b []byte) []xmlRelationship {
	var doc struct {
		Relationships []xmlRelationship `xml:"Relationship"`
	}
	if err := xml.Unmarshal(b, &doc); err != nil {
		return nil
	}
	return doc.Relationships
}

func parseStyles(b []byte) map[string]string {
	var doc struct {
		Styles []struct {
			ID   string `xml:"styleId,attr"`
			Name struct {
				Val string `xml:"val,attr"`
			} `xml:"name"`
		} `xml:"style"`
	}
	styles := map[string]string{}
	if err := xml.Unmarshal(b, &doc); err != nil {
		return styles
	}
	for _, s := range doc.Styles {
		styles[s.ID] = s.Name.Val
	}
	return styles
}

// parseNumbering returns, per numId and level, whether the list is ordered.
func parseNumbering(b []byte) map[string]map[string]bool {
	var doc struct {
		AbstractNums []struct {
			ID     string `xml:"abstractNumId,attr"`
			Levels []struct {
				Ilvl   string `xml:"ilvl,attr"`
				NumFmt struct {
					Val string `xml:"val,attr"`
				} `xml:"numFmt"`
			} `xml:"lvl"`
		} `xml:"abstractNum"`
		Nums []struct {
			ID       string `xml:"numId,attr"`
			Abstract struct {
				Val string `xml:"val,attr"`
			} `xml:"abstractNumId"`
		} `xml:"num"`
	}
	ordered := map[string]map[string]bool{}
	if err := xml.Unmarshal(b, &doc); err != nil {
		return ordered
	}

	abstract := map[string]map[string]bool{}
	for _, an := range doc.AbstractNums {
		levels := map[string]bool{}
		for _, lvl := range an.Levels {
			switch lvl.NumFmt.Val {
			case "", "bullet", "none":
				levels[lvl.Ilvl] = false
			default:
				levels[lvl.Ilvl] = true
			}
		}
		abstract[an.ID] = levels
	}
	for _, n := range doc.Nums {
		if levels, ok := abstract[n.Abstract.Val]; ok {
			ordered[n.ID] = levels
		}
	}
	return ordered
}

func parseContentTypes(b []byte) (map[string]string, map[string]string) {
	var doc struct {
		Defaults []struct {
			Extension   string `xml:"Extension,attr"`
			ContentType string `xml:"ContentType,attr"`
		} `xml:"Default"`
		Overrides []struct {
			PartName    string `xml:"PartName,attr"`
			ContentType string `xml:"ContentType,attr"`
		} `xml:"Override"`
	}
	defaults, overrides := map[string]string{}, map[string]string{}
	if err := xml.Unmarshal(b, &doc); err != nil {
		return defaults, overrides
	}
	for _, d := range doc.Defaults {
		defaults[strings.ToLower(d.Extension)] = d.ContentType
	}
	for _, o := range doc.Overrides {
		overrides[o.PartName] = o.ContentType
	}
	return defaults, overrides
}
