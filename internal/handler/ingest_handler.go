package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/docley/docingest/internal/domain"
	ierrors "github.com/docley/docingest/pkg/errors"

	"github.com/google/uuid"
)

// multipartOverhead is the slack allowed on top of the file ceiling for
// multipart boundaries and the other form fields.
const multipartOverhead = 1 << 20

// IngestHandler exposes the ingestion pipeline over HTTP
type IngestHandler struct {
	ingestService domain.IngestService
	sink          domain.DocumentSink
	maxFileSize   int64
	logger        domain.Logger

	now   func() time.Time
	newID func() string
}

// NewIngestHandler creates a new ingest handler. sink may be nil, in which
// case results are returned without being stored.
func NewIngestHandler(ingestService domain.IngestService, sink domain.DocumentSink, maxFileSize int64, logger domain.Logger) *IngestHandler {
	return &IngestHandler{
		ingestService: ingestService,
		sink:          sink,
		maxFileSize:   maxFileSize,
		logger:        logger,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

type ingestResponse struct {
	DocumentID string                   `json:"document_id"`
	Result     *domain.ExtractionResult `json:"result"`
}

type ingestTextRequest struct {
	Text  string `json:"text"`
	Title string `json:"title"`
}

// IngestFile handles multipart uploads on the "file" field
func (h *IngestHandler) IngestFile(w http.ResponseWriter, r *http.Request) {
	limit := h.maxFileSize + multipartOverhead
	if r.ContentLength > limit {
		writeIngestError(w, ierrors.NewTooLarge(r.ContentLength, h.maxFileSize))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeIngestError(w, ierrors.NewTooLarge(tooLarge.Limit, h.maxFileSize))
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "File is required")
		return
	}
	defer file.Close()

	// Sanitize filename (strip any path components)
	fileName := strings.TrimSpace(filepath.Base(header.Filename))
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		fileName = "document"
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read upload", err, "file_name", fileName)
		writeError(w, http.StatusBadRequest, "Failed to read file")
		return
	}

	source := domain.SourceFile{
		Bytes:             data,
		DeclaredMediaType: declaredMediaType(r, header.Header.Get("Content-Type"), fileName),
		SizeBytes:         header.Size,
		FileName:          fileName,
	}

	result, err := h.ingestService.Ingest(r.Context(), source)
	if err != nil {
		h.logger.Warn("Ingestion rejected", "file_name", fileName, "error", err.Error())
		writeIngestError(w, err)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	}
	h.respond(w, r, title, result)
}

// IngestText handles pasted text sent as JSON
func (h *IngestHandler) IngestText(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+multipartOverhead)

	var req ingestTextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeIngestError(w, ierrors.NewTooLarge(tooLarge.Limit, h.maxFileSize))
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if int64(len(req.Text)) > h.maxFileSize {
		writeIngestError(w, ierrors.NewTooLarge(int64(len(req.Text)), h.maxFileSize))
		return
	}

	result, err := h.ingestService.IngestText(r.Context(), req.Text)
	if err != nil {
		writeIngestError(w, err)
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "Untitled"
	}
	h.respond(w, r, title, result)
}

func (h *IngestHandler) respond(w http.ResponseWriter, r *http.Request, title string, result *domain.ExtractionResult) {
	if h.sink == nil {
		writeJSON(w, http.StatusOK, result)
		return
	}

	doc := &domain.IngestedDocument{
		ID:        h.newID(),
		Title:     title,
		Result:    result,
		CreatedAt: h.now(),
	}
	if user, ok := GetUserFromContext(r); ok && user != nil {
		doc.UserID = user.ID
	}
	token, _ := GetTokenFromContext(r)

	if err := h.sink.Create(r.Context(), doc, token); err != nil {
		h.logger.Error("Failed to save document", err, "document_id", doc.ID, "user_id", doc.UserID)
		writeError(w, http.StatusInternalServerError, "Failed to save document")
		return
	}

	writeJSON(w, http.StatusCreated, ingestResponse{DocumentID: doc.ID, Result: result})
}

// declaredMediaType picks the explicit media_type field, then the part's
// Content-Type, then the file extension for generic or missing types.
func declaredMediaType(r *http.Request, partType, fileName string) string {
	if mt := strings.TrimSpace(r.FormValue("media_type")); mt != "" {
		return mt
	}
	partType = strings.TrimSpace(partType)
	if partType != "" && !strings.HasPrefix(strings.ToLower(partType), "application/octet-stream") {
		return partType
	}
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
}
