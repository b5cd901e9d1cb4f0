package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"lounge-chat/internal/domain"
	"lounge-chat/internal/middleware"
	"lounge-chat/internal/observability"
)

var statusByCode = map[string]int{
	domain.CodeInvalidName:     http.StatusBadRequest,
	domain.CodeNameTaken:       http.StatusConflict,
	domain.CodeUnauthenticated: http.StatusUnauthorized,
	domain.CodeEmptyMessage:    http.StatusBadRequest,
	domain.CodeTextTooLong:     http.StatusBadRequest,
	domain.CodeInvalidImage:    http.StatusBadRequest,
	domain.CodeImageTooLarge:   http.StatusRequestEntityTooLarge,
}

// StatusFor returns the HTTP status for a domain error code
func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError maps err to its code and status. Internal errors are logged and
// replaced with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	if code == domain.CodeInternal {
		observability.FromContext(r.Context()).Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		middleware.WriteError(w, http.StatusInternalServerError, code, "internal server error")
		return
	}
	middleware.WriteError(w, StatusFor(code), code, err.Error())
}

// decodeBody reads a JSON body of at most limit bytes into v. An oversized
// body is reported as ErrBodyTooLarge.
func decodeBody(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return ErrBodyTooLarge
		}
		return ErrInvalidBody
	}
	return nil
}

var (
	ErrInvalidBody  = errors.New("invalid request body")
	ErrBodyTooLarge = errors.New("request body too large")
)
