package domain

import "context"

// IngestService turns uploaded or pasted documents into canonical text and HTML.
type IngestService interface {
	Ingest(ctx context.Context, source SourceFile) (*ExtractionResult, error)
	IngestText(ctx context.Context, text string) (*ExtractionResult, error)
}

// DocumentSink is the document-creation collaborator that persists a result.
type DocumentSink interface {
	Create(ctx context.Context, document *IngestedDocument, token string) error
}

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetLogLevel() string
	GetMaxFileSize() int64
	GetPDFMaxPages() int
	GetPDFWorkers() int
	GetPDFLineBreakThreshold() float64
	GetPDFWordGapRatio() float64
	GetMaxInlineImageBytes() int64
	GetSupabaseURL() string
	GetSupabaseKey() string
	GetDocumentsTable() string
	GetCORSAllowedOrigins() []string
}
