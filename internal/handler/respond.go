package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/todolists/todolists-go/internal/apperr"
)

const maxBodyBytes = 1 << 20 // 1MB

type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

func errorResponse(msg string) errorBody {
	return errorBody{Message: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError maps err onto its status and a client-safe body.
// Server errors are logged with their cause and answered with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindServer {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}

	writeJSON(w, kind.Status(), errorBody{
		Message: apperr.MessageOf(err),
		Errors:  apperr.FieldsOf(err),
	})
}

// decodeJSON reads a size-limited JSON body into dst. It writes the error
// response itself and reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("Request body too large."))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("Invalid request body."))
		return false
	}
	return true
}
