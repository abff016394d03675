package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind represents the category of an ingestion failure
type Kind string

const (
	KindUnsupportedType      Kind = "unsupported_type"
	KindTooLarge             Kind = "too_large"
	KindCorruptOrEncrypted   Kind = "corrupt_or_encrypted"
	KindEmptyExtraction      Kind = "empty_extraction"
	KindInternalParseFailure Kind = "internal_parse_failure"
)

// IngestError is the typed failure returned by every pipeline stage.
type IngestError struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Hint       string `json:"hint,omitempty"`
	StatusCode int    `json:"-"`
	Cause      error  `json:"-"`
}

// Error implements the error interface
func (e *IngestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error
func (e *IngestError) Unwrap() error {
	return e.Cause
}

// NewUnsupportedType reports a declared media type outside pdf, docx and txt.
func NewUnsupportedType(mediaType string) *IngestError {
	return &IngestError{
		Kind:       KindUnsupportedType,
		Message:    fmt.Sprintf("unsupported media type %q", mediaType),
		Hint:       "Upload a PDF, DOCX or TXT file, or paste the text instead.",
		StatusCode: http.StatusUnsupportedMediaType,
	}
}

// NewTooLarge reports a file above the size ceiling.
func NewTooLarge(size, limit int64) *IngestError {
	return &IngestError{
		Kind:       KindTooLarge,
		Message:    fmt.Sprintf("file is %d bytes, limit is %d bytes", size, limit),
		Hint:       fmt.Sprintf("Files must be %d MB or smaller.", limit/(1024*1024)),
		StatusCode: http.StatusRequestEntityTooLarge,
	}
}

// NewCorruptOrEncrypted reports a container the parser could not open.
func NewCorruptOrEncrypted(message string, cause error) *IngestError {
	return &IngestError{
		Kind:       KindCorruptOrEncrypted,
		Message:    message,
		Hint:       "The file looks damaged or password-protected. Remove the password or paste the text instead.",
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
}

// NewEmptyExtraction reports a document that parsed but held no readable text.
func NewEmptyExtraction(message, hint string) *IngestError {
	if hint == "" {
		hint = "No text was found. Paste the text manually instead."
	}
	return &IngestError{
		Kind:       KindEmptyExtraction,
		Message:    message,
		Hint:       hint,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// NewInternalParseFailure wraps an unexpected failure during conversion.
func NewInternalParseFailure(message string, cause error) *IngestError {
	return &IngestError{
		Kind:       KindInternalParseFailure,
		Message:    message,
		Hint:       "Something went wrong while reading the file. Try again or paste the text instead.",
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// KindOf returns the kind of the first IngestError in err's chain.
func KindOf(err error) (Kind, bool) {
	var ie *IngestError
	if stderrors.As(err, &ie) {
		return ie.Kind, true
	}
	return "", false
}

// IsKind checks if the error is of a specific kind
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// GetStatusCode returns the HTTP status code for an error
func GetStatusCode(err error) int {
	var ie *IngestError
	if stderrors.As(err, &ie) && ie.StatusCode != 0 {
		return ie.StatusCode
	}
	return http.StatusInternalServerError
}
