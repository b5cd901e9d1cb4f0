package testutil

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"lounge-chat/internal/domain"
	"lounge-chat/internal/repository/memory"
	"lounge-chat/internal/service"
)

// TestSessionSecret signs sessions issued by NewTestSessionService
const TestSessionSecret = "test-session-secret-with-32-plus-chars"

// Counter for generating unique IDs
var idCounter atomic.Int64

// nextID generates a unique ID for test fixtures
func nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, idCounter.Add(1))
}

// NewTestChatService wires an in-memory chat service with a deterministic
// color source
func NewTestChatService(capacity int) *service.ChatService {
	return service.NewChatService(
		memory.NewUserRegistry(rand.New(rand.NewPCG(1, 2))),
		memory.NewMessageLog(capacity),
		service.NewMessageValidator(false),
	)
}

// NewTestSessionService returns a session service signed with TestSessionSecret
func NewTestSessionService(t *testing.T) *service.SessionService {
	t.Helper()
	sessions, err := service.NewSessionService(TestSessionSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to create session service: %v", err)
	}
	return sessions
}

// SessionOptions allows customizing session fixture creation
type SessionOptions struct {
	ID        string
	Username  string
	Token     string
	CSRFToken string
	ExpiresAt time.Time
}

// NewTestSession creates a test session with sensible defaults
func NewTestSession(opts ...func(*SessionOptions)) *domain.Session {
	o := &SessionOptions{
		ID:        nextID("session"),
		Username:  fmt.Sprintf("user%d", idCounter.Load()),
		Token:     nextID("token"),
		CSRFToken: nextID("csrf"),
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}

	for _, opt := range opts {
		opt(o)
	}

	return &domain.Session{
		ID:        o.ID,
		Username:  o.Username,
		Token:     o.Token,
		CSRFToken: o.CSRFToken,
		ExpiresAt: o.ExpiresAt,
	}
}

// Session option functions

func WithSessionUsername(username string) func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.Username = username
	}
}

func WithCSRFToken(token string) func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.CSRFToken = token
	}
}

func WithExpired() func(*SessionOptions) {
	return func(o *SessionOptions) {
		o.ExpiresAt = time.Now().Add(-1 * time.Hour)
	}
}

// MessageOptions allows customizing message fixture creation
type MessageOptions struct {
	ID        string
	Seq       uint64
	Username  string
	Text      string
	Image     string
	Color     domain.Color
	Timestamp time.Time
}

// NewTestMessage creates a finalized message with sensible defaults
func NewTestMessage(opts ...func(*MessageOptions)) domain.Message {
	o := &MessageOptions{
		ID:        nextID("msg"),
		Seq:       uint64(idCounter.Load()),
		Username:  "testuser",
		Text:      "Test message",
		Color:     "#AABBCC",
		Timestamp: time.Now().UTC(),
	}

	for _, opt := range opts {
		opt(o)
	}

	return domain.Message{
		ID:        o.ID,
		Seq:       o.Seq,
		Username:  o.Username,
		Text:      o.Text,
		Image:     o.Image,
		Color:     o.Color,
		Timestamp: o.Timestamp,
	}
}

// Message option functions

func WithID(id string) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.ID = id
	}
}

func WithSeq(seq uint64) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.Seq = seq
	}
}

func WithMessageUsername(username string) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.Username = username
	}
}

func WithText(text string) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.Text = text
	}
}

func WithImage(image string) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.Image = image
	}
}

func WithColor(color domain.Color) func(*MessageOptions) {
	return func(o *MessageOptions) {
		o.Color = color
	}
}

// Identity returns a caller that is not bound to a session
func Identity(username string) domain.Identity {
	return domain.Identity{Username: username}
}

// NewTestMessages creates count messages from one user with increasing seq
func NewTestMessages(username string, count int) []domain.Message {
	base := time.Now().UTC()
	messages := make([]domain.Message, count)
	for i := 0; i < count; i++ {
		messages[i] = NewTestMessage(
			WithMessageUsername(username),
			WithSeq(uint64(i+1)),
			WithText(fmt.Sprintf("message %d", i+1)),
			func(o *MessageOptions) { o.Timestamp = base.Add(time.Duration(i) * time.Second) },
		)
	}
	return messages
}
