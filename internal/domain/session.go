package domain

import (
	"errors"
	"time"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionRevoked  = errors.New("session revoked")
)

// Session is the identity carried by the signed session cookie
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Token     string    `json:"-"`
	CSRFToken string    `json:"csrf_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Identity returns the caller this session authenticates
func (s *Session) Identity() Identity {
	return Identity{Username: s.Username, SessionID: s.ID}
}

// Identity is an authenticated caller: a username and the session that holds
// it. An empty SessionID is not bound to a session and matches any holder.
type Identity struct {
	Username  string
	SessionID string
}
