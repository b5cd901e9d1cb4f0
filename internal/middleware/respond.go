package middleware

import (
	"encoding/json"
	"net/http"
)

// Error codes produced by the middleware chain itself
const (
	CodeForbidden        = "forbidden"
	CodeRateLimited      = "rate_limited"
	CodeValidationFailed = "validation_failed"
)

// ErrorResponse is the JSON body of every error reply
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteError writes a JSON error body with the given status
func WriteError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}
