package service

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"lounge-chat/internal/domain"
	"lounge-chat/internal/security"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

const (
	DefaultSessionTTL = 24 * time.Hour

	sessionKeyInfo = "lounge-chat session v1"
	sessionKeySize = 32
)

type sessionClaims struct {
	CSRF string `json:"csrf"`
	jwt.RegisteredClaims
}

// SessionService issues and verifies signed session tokens. Tokens carry
// the username, so a session stays valid across restarts that keep the same
// secret even though the registry does not. Revocations are kept in memory
// until the revoked token would have expired.
type SessionService struct {
	key    []byte
	ttl    time.Duration
	tokens *security.TokenManager
	now    func() time.Time

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewSessionService derives the signing key from secret with HKDF-SHA256
func NewSessionService(secret string, ttl time.Duration) (*SessionService, error) {
	if secret == "" {
		return nil, errors.New("session secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	key := make([]byte, sessionKeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(sessionKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}

	return &SessionService{
		key:     key,
		ttl:     ttl,
		tokens:  security.NewTokenManager(),
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}, nil
}

// Issue creates a session for an already registered username
func (s *SessionService) Issue(username string) (*domain.Session, error) {
	csrfToken, err := s.tokens.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate csrf token: %w", err)
	}

	now := s.now()
	session := &domain.Session{
		ID:        uuid.NewString(),
		Username:  username,
		CSRFToken: csrfToken,
		ExpiresAt: now.Add(s.ttl).Truncate(time.Second),
	}

	claims := sessionClaims{
		CSRF: csrfToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("sign session: %w", err)
	}
	session.Token = token

	return session, nil
}

// Validate verifies a session token and returns the session it encodes
func (s *SessionService) Validate(token string) (*domain.Session, error) {
	if token == "" {
		return nil, domain.ErrSessionNotFound
	}

	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrSessionExpired
		}
		return nil, domain.ErrSessionNotFound
	}

	if claims.Subject == "" || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, domain.ErrSessionNotFound
	}
	if s.isRevoked(claims.ID) {
		return nil, domain.ErrSessionRevoked
	}

	return &domain.Session{
		ID:        claims.ID,
		Username:  claims.Subject,
		Token:     token,
		CSRFToken: claims.CSRF,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke ends a session before its expiry, for logout
func (s *SessionService) Revoke(session *domain.Session) {
	if session == nil || session.ID == "" {
		return
	}

	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, expiresAt := range s.revoked {
		if !now.Before(expiresAt) {
			delete(s.revoked, id)
		}
	}
	if now.Before(session.ExpiresAt) {
		s.revoked[session.ID] = session.ExpiresAt
	}
}

func (s *SessionService) isRevoked(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[id]
	return ok
}

// TTL returns the lifetime of issued sessions
func (s *SessionService) TTL() time.Duration {
	return s.ttl
}
