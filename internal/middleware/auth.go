package middleware

import (
	"context"
	"errors"
	"net/http"

	"lounge-chat/internal/domain"
	"lounge-chat/internal/observability"
)

type contextKey string

const (
	UsernameKey contextKey = "username"
	SessionKey  contextKey = "session"

	SessionCookieName = "session"
)

// SessionValidator resolves a session token to the identity it carries
type SessionValidator interface {
	Validate(token string) (*domain.Session, error)
}

func Auth(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				WriteError(w, http.StatusUnauthorized, domain.CodeUnauthenticated, "Not authenticated")
				return
			}

			session, err := sessions.Validate(cookie.Value)
			if err != nil {
				message := "Invalid session"
				switch {
				case errors.Is(err, domain.ErrSessionExpired):
					message = "Session expired"
				case errors.Is(err, domain.ErrSessionRevoked):
					message = "Session ended"
				}
				WriteError(w, http.StatusUnauthorized, domain.CodeUnauthenticated, message)
				return
			}

			ctx := WithSession(r.Context(), session)
			ctx = observability.WithSession(ctx, session.Username, session.ID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUsername returns the authenticated username, if any
func GetUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok && username != ""
}

// GetIdentity returns the authenticated caller. Without a session in ctx the
// identity is not bound to one.
func GetIdentity(ctx context.Context) (domain.Identity, bool) {
	if session, ok := GetSession(ctx); ok {
		return session.Identity(), session.Username != ""
	}
	username, ok := GetUsername(ctx)
	return domain.Identity{Username: username}, ok
}

func GetSession(ctx context.Context) (*domain.Session, bool) {
	session, ok := ctx.Value(SessionKey).(*domain.Session)
	return session, ok
}

func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, UsernameKey, username)
}

// WithSession stores the session and its username in ctx
func WithSession(ctx context.Context, session *domain.Session) context.Context {
	ctx = context.WithValue(ctx, SessionKey, session)
	return WithUsername(ctx, session.Username)
}
