// Package middleware provides HTTP middleware for the reference admin API.
package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/vyrodovalexey/adminstate/internal/model"
)

// RequestIDHeader carries the per-request id. The API client sets it; the
// server echoes it or assigns one.
const RequestIDHeader = "X-Request-ID"

// Middleware is a function that wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// writeError writes a {code, message} JSON error.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{
		Code:    status,
		Message: message,
	})
}
