package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docley/docingest/internal/domain"
)

// SupabaseDocumentSink implements domain.DocumentSink on a Supabase table.
type SupabaseDocumentSink struct {
	supabaseClient domain.SupabaseClient
	table          string
	logger         domain.Logger
}

// NewSupabaseDocumentSink creates a sink that inserts into table.
func NewSupabaseDocumentSink(supabaseClient domain.SupabaseClient, table string, logger domain.Logger) domain.DocumentSink {
	if table == "" {
		table = "documents"
	}
	return &SupabaseDocumentSink{
		supabaseClient: supabaseClient,
		table:          table,
		logger:         logger,
	}
}

// Create inserts one ingested document using the caller's token for RLS.
func (r *SupabaseDocumentSink) Create(ctx context.Context, document *domain.IngestedDocument, token string) error {
	if document == nil || document.Result == nil {
		return fmt.Errorf("document has no extraction result")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := r.supabaseClient.GetClientWithToken(token)
	if err != nil {
		return fmt.Errorf("failed to get client with token: %w", err)
	}
	if client == nil {
		return fmt.Errorf("supabase client not initialized")
	}

	_, _, err = client.From(r.table).Insert(documentRow(document), false, "", "", "").Execute()
	if err != nil {
		r.logger.Error("Failed to insert document in Supabase", err,
			"doc_id", document.ID,
			"table", r.table,
			"html_length", len(document.Result.HTML),
		)
		return fmt.Errorf("failed to create document: %w", err)
	}

	r.logger.Info(
		"Document created",
		"id", document.ID,
		"user_id", document.UserID,
	)
	return nil
}

// documentRow flattens a document into the table's columns. NUL characters
// are removed because PostgreSQL rejects them in text and jsonb (22P05).
func documentRow(document *domain.IngestedDocument) map[string]interface{} {
	result := document.Result

	warnings := make([]string, len(result.Warnings))
	for i, w := range result.Warnings {
		warnings[i] = removeNUL(w)
	}

	var userID interface{}
	if document.UserID != "" {
		userID = document.UserID
	}

	return map[string]interface{}{
		"id":         document.ID,
		"user_id":    userID,
		"title":      removeNUL(document.Title),
		"plain_text": removeNUL(result.PlainText),
		"html":       removeNUL(result.HTML),
		"word_count": result.WordCount,
		"page_count": result.PageCount,
		"metadata": map[string]interface{}{
			"format":    string(result.Format),
			"file_name": removeNUL(result.FileName),
			"file_size": result.FileSize,
			"warnings":  warnings,
		},
		"created_at": document.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func removeNUL(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}
