package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"lounge-chat/internal/domain"
	"lounge-chat/internal/security"
)

const CSRFHeaderName = "X-CSRF-Token"

// CSRF validates the per-session token on state-changing requests.
// The expected token travels inside the signed session, so validation needs
// no server-side storage. Must run after Auth.
//
// Token sources (checked in order):
// - Header: X-CSRF-Token
// - Header: X-XSRF-Token (alternate)
func CSRF(tokens *security.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) || isExemptPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			session, ok := GetSession(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, domain.CodeUnauthenticated, "Not authenticated")
				return
			}

			submitted := extractCSRFToken(r)
			if submitted == "" {
				logCSRFFailure(r, session.Username, "missing token")
				WriteError(w, http.StatusForbidden, CodeForbidden, "Forbidden")
				return
			}

			if err := tokens.Verify(session.CSRFToken, submitted); err != nil {
				logCSRFFailure(r, session.Username, "invalid token")
				WriteError(w, http.StatusForbidden, CodeForbidden, "Forbidden")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isSafeMethod returns true if the HTTP method is idempotent and cacheable.
// These methods should not modify state and don't require CSRF tokens.
func isSafeMethod(method string) bool {
	return method == http.MethodGet ||
		method == http.MethodHead ||
		method == http.MethodOptions
}

// isExemptPath returns true if the request path should skip CSRF validation
func isExemptPath(path string) bool {
	exemptPaths := []string{
		"/health",
		"/metrics",
		"/ws",
	}

	for _, exemptPath := range exemptPaths {
		if path == exemptPath || strings.HasPrefix(path, exemptPath+"/") {
			return true
		}
	}
	return false
}

func extractCSRFToken(r *http.Request) string {
	if token := r.Header.Get(CSRFHeaderName); token != "" {
		return token
	}
	return r.Header.Get("X-XSRF-Token")
}

// logCSRFFailure logs a security event when CSRF validation fails
func logCSRFFailure(r *http.Request, username, reason string) {
	slog.Warn("CSRF validation failed",
		slog.String("username", username),
		slog.String("reason", reason),
		slog.String("method", r.Method),
		slog.String("path", r.RequestURI),
		slog.String("remote_addr", r.RemoteAddr),
	)
}
