package domain

import "time"

// Format is the closed set of document kinds the pipeline accepts.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatTXT  Format = "txt"
)

// Canonical media types for each format.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeTXT  = "text/plain"
)

// MediaType returns the canonical media type of the format.
func (f Format) MediaType() string {
	switch f {
	case FormatPDF:
		return MediaTypePDF
	case FormatDOCX:
		return MediaTypeDOCX
	case FormatTXT:
		return MediaTypeTXT
	default:
		return ""
	}
}

// SourceFile is the caller-supplied input of one ingestion call.
// The pipeline never retains it once the call returns.
type SourceFile struct {
	Bytes             []byte
	DeclaredMediaType string
	SizeBytes         int64
	FileName          string
}

// Size returns the effective size used for limit checks. A declared size
// smaller than the payload never hides the real length.
func (s SourceFile) Size() int64 {
	if n := int64(len(s.Bytes)); n > s.SizeBytes {
		return n
	}
	return s.SizeBytes
}

// ExtractionResult is the canonical output of a successful ingestion.
type ExtractionResult struct {
	Format    Format   `json:"format"`
	PlainText string   `json:"plain_text"`
	HTML      string   `json:"html"`
	PageCount int      `json:"page_count"`
	WordCount int      `json:"word_count"`
	FileName  string   `json:"file_name,omitempty"`
	FileSize  int64    `json:"file_size,omitempty"`
	Warnings  []string `json:"warnings"`
}

// TextFragment is a positioned run of text read from one PDF page.
type TextFragment struct {
	Text      string
	BaselineY float64
	PageIndex int
	ItemIndex int
}

// IngestedDocument is what the HTTP caller hands to a DocumentSink.
type IngestedDocument struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Title     string            `json:"title"`
	Result    *ExtractionResult `json:"result"`
	CreatedAt time.Time         `json:"created_at"`
}
