package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrMouse2405/CSE362/internal/auth"
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
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // best-effort write to response; connection may be closed
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

func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, ErrCodeConflict, message)
}

func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeAuthError is the single place auth error kinds become HTTP responses.
//
// Every session failure looks the same to the client; the wrapped reason
// (unknown id, expired, secret mismatch) is only logged.
func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestIDFromContext(r.Context())

	switch {
	case errors.Is(err, auth.ErrMalformedToken), errors.Is(err, auth.ErrInvalidSession):
		s.logger.Debug("session rejected", "reason", err.Error(), "request_id", requestID)
		writeUnauthorized(w, "invalid session")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeUnauthorized(w, "invalid credentials")
	case errors.Is(err, auth.ErrForbidden):
		s.logger.Debug("access denied", "reason", err.Error(), "path", r.URL.Path, "request_id", requestID)
		writeForbidden(w, "insufficient permissions")
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrSessionNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, auth.ErrUsernameExists):
		writeConflict(w, "username already exists")
	case errors.Is(err, auth.ErrInvalidRole):
		writeBadRequest(w, "invalid role")
	default:
		s.logger.Error("request failed", "error", err, "path", r.URL.Path, "request_id", requestID)
		writeInternalError(w, "internal server error")
	}
}
