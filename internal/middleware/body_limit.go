package middleware

import (
	"errors"
	"net/http"

	"lounge-chat/internal/domain"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// BodyLimit caps request bodies at limit bytes for everything after it in
// the chain. A request that declares a larger Content-Length is rejected
// without reading the body. The largest body the API accepts is a message
// carrying a full-size image, so an oversized body is image_too_large.
func BodyLimit(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		capped := chimiddleware.RequestSize(limit)(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeBodyTooLarge(w)
				return
			}
			capped.ServeHTTP(w, r)
		})
	}
}

// isBodyTooLarge reports whether err came from reading past a BodyLimit cap
func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func writeBodyTooLarge(w http.ResponseWriter) {
	WriteError(w, http.StatusRequestEntityTooLarge, domain.CodeImageTooLarge, "Request body too large")
}
