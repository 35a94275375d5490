package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/ringclient-core/internal/app"
	"github.com/nerrad567/ringclient-core/internal/collection"
	"github.com/nerrad567/ringclient-core/internal/collectionmodel"
	"github.com/nerrad567/ringclient-core/internal/contact"
	"github.com/nerrad567/ringclient-core/internal/daemon"
	"github.com/nerrad567/ringclient-core/internal/video"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeForbidden    = "forbidden"
	ErrCodeConflict     = "conflict"
	ErrCodeInternal     = "internal_error"
	ErrCodeUnavailable  = "unavailable"
	ErrCodeUnsupported  = "unsupported"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeAppError maps a domain error to a response.
func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, app.ErrNotRunning), errors.Is(err, daemon.ErrUnavailable),
		errors.Is(err, daemon.ErrNotStarted), errors.Is(err, daemon.ErrNoState):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, err.Error())
	case errors.Is(err, collection.ErrNotFound), errors.Is(err, collectionmodel.ErrInvalidIndex),
		errors.Is(err, video.ErrDeviceNotFound), errors.Is(err, video.ErrNoActiveDevice),
		errors.Is(err, contact.ErrPersonNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, collection.ErrUnsupported):
		writeError(w, http.StatusConflict, ErrCodeUnsupported, err.Error())
	case errors.Is(err, contact.ErrMissingUID), errors.Is(err, contact.ErrInvalidUID),
		errors.Is(err, collectionmodel.ErrInvalidValue):
		writeBadRequest(w, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "request timed out")
	default:
		writeInternalError(w, err.Error())
	}
}
