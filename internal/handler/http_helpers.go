package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/docley/docingest/internal/domain"
	ierrors "github.com/docley/docingest/pkg/errors"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	tokenContextKey contextKey = "token"
)

// GetUserFromContext extracts the authenticated user from request context
func GetUserFromContext(r *http.Request) (*domain.SupabaseUser, bool) {
	user, ok := r.Context().Value(userContextKey).(*domain.SupabaseUser)
	return user, ok
}

// GetTokenFromContext extracts the authentication token from request context
func GetTokenFromContext(r *http.Request) (string, bool) {
	token, ok := r.Context().Value(tokenContextKey).(string)
	return token, ok
}

func withUser(ctx context.Context, user *domain.SupabaseUser, token string) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, tokenContextKey, token)
}

// writeError writes an error response (helper function)
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

type ingestErrorResponse struct {
	Error string       `json:"error"`
	Kind  ierrors.Kind `json:"kind"`
	Hint  string       `json:"hint,omitempty"`
}

// writeIngestError renders a pipeline failure with its kind so clients can
// show specific guidance. Untyped errors become internal failures.
func writeIngestError(w http.ResponseWriter, err error) {
	resp := ingestErrorResponse{
		Error: "Internal server error",
		Kind:  ierrors.KindInternalParseFailure,
	}
	var ie *ierrors.IngestError
	if errors.As(err, &ie) {
		resp.Error = ie.Message
		resp.Kind = ie.Kind
		resp.Hint = ie.Hint
	}
	writeJSON(w, ierrors.GetStatusCode(err), resp)
}
