package handler

import (
	"log/slog"
	"net/http"
	"time"

	"lounge-chat/internal/domain"
	"lounge-chat/internal/middleware"
	"lounge-chat/internal/observability"
	"lounge-chat/internal/service"
)

const maxRegisterBody = 4 * 1024

// SessionIssuer creates and ends signed sessions
type SessionIssuer interface {
	Issue(username string) (*domain.Session, error)
	Revoke(session *domain.Session)
	TTL() time.Duration
}

// AuthHandler handles registration and the session lifecycle
type AuthHandler struct {
	chat          *service.ChatService
	sessions      SessionIssuer
	secureCookies bool
}

// NewAuthHandler creates a new authentication handler. secureCookies marks
// the session cookie Secure, which requires HTTPS.
func NewAuthHandler(chat *service.ChatService, sessions SessionIssuer, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		chat:          chat,
		sessions:      sessions,
		secureCookies: secureCookies,
	}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Username string `json:"username"`
}

// RegisterResponse represents registration response
type RegisterResponse struct {
	Username  string       `json:"username"`
	Color     domain.Color `json:"color"`
	CSRFToken string       `json:"csrf_token"`
}

// Register claims a display name and sets the session cookie
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeBody(w, r, maxRegisterBody, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "Invalid request body")
		return
	}

	username, err := domain.NormalizeUsername(req.Username)
	if err != nil {
		writeError(w, r, err)
		return
	}

	// the name is bound to the session that claims it
	session, err := h.sessions.Issue(username)
	if err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.chat.Register(r.Context(), username, session.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, session.Token, int(h.sessions.TTL().Seconds()))

	writeJSON(w, http.StatusCreated, RegisterResponse{
		Username:  user.Username,
		Color:     user.Color,
		CSRFToken: session.CSRFToken,
	})
}

// Logout releases the display name, revokes the session and clears the
// session cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, r, domain.ErrUnauthenticated)
		return
	}

	h.chat.Release(r.Context(), id)
	if session, ok := middleware.GetSession(r.Context()); ok {
		h.sessions.Revoke(session)
	}
	h.setSessionCookie(w, "", -1)

	observability.FromContext(r.Context()).Info("user logged out", slog.String("username", id.Username))
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the caller's username and color
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, r, domain.ErrUnauthenticated)
		return
	}

	user, err := h.chat.Resume(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}
