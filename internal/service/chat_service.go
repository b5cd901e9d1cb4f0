package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lounge-chat/internal/domain"
	"lounge-chat/internal/observability"

	"github.com/google/uuid"
)

// Stats is a point-in-time summary of the chat state
type Stats struct {
	Users    int    `json:"users"`
	Retained int    `json:"retained_messages"`
	Total    uint64 `json:"total_messages"`
}

// ChatService owns the user registry and the message log behind a single
// lock. Every compound operation (resolve color, append, publish) is observed
// as one atomic step by concurrent callers.
type ChatService struct {
	mu         sync.RWMutex
	users      domain.UserRegistry
	messages   domain.MessageLog
	validator  *MessageValidator
	publishers []domain.MessagePublisher
	now        func() time.Time
}

func NewChatService(users domain.UserRegistry, messages domain.MessageLog, validator *MessageValidator) *ChatService {
	if validator == nil {
		validator = NewMessageValidator(false)
	}
	return &ChatService{
		users:     users,
		messages:  messages,
		validator: validator,
		now:       time.Now,
	}
}

// AddPublisher registers a sink for finalized messages
func (s *ChatService) AddPublisher(p domain.MessagePublisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publishers = append(s.publishers, p)
}

// Register claims a username for the session sessionID and returns the
// assigned user
func (s *ChatService) Register(ctx context.Context, name, sessionID string) (domain.User, error) {
	s.mu.Lock()
	color, err := s.users.Register(name, sessionID)
	users := s.users.Len()
	s.mu.Unlock()

	if err != nil {
		observability.FromContext(ctx).Info("registration rejected",
			slog.String("username", name),
			slog.String("reason", domain.ErrorCode(err)))
		return domain.User{}, err
	}

	observability.RegisteredUsers.Set(float64(users))
	username, _ := domain.NormalizeUsername(name)
	observability.FromContext(ctx).Info("user registered",
		slog.String("username", username),
		slog.String("color", string(color)))

	return domain.User{Username: username, Color: color}, nil
}

// Submit validates a draft from a trusted identity, appends it and hands the
// finalized message to every publisher. A rejected draft changes nothing.
// A session whose name is now held by another session is unauthenticated.
func (s *ChatService) Submit(ctx context.Context, id domain.Identity, draft domain.Draft) (domain.Message, error) {
	username := id.Username
	if username == "" {
		observability.SubmitsRejected.WithLabelValues(domain.CodeUnauthenticated).Inc()
		return domain.Message{}, domain.ErrUnauthenticated
	}

	draft, err := s.validator.Validate(draft)
	if err != nil {
		observability.SubmitsRejected.WithLabelValues(domain.ErrorCode(err)).Inc()
		observability.FromContext(ctx).Debug("message rejected",
			slog.String("username", username),
			slog.String("reason", domain.ErrorCode(err)))
		return domain.Message{}, err
	}

	s.mu.Lock()
	color, err := s.users.EnsureRegistered(username, id.SessionID)
	if err != nil {
		s.mu.Unlock()
		observability.SubmitsRejected.WithLabelValues(domain.CodeUnauthenticated).Inc()
		logStaleSession(ctx, id)
		return domain.Message{}, domain.ErrUnauthenticated
	}

	timestamp := s.now().UTC()
	if last, ok := s.messages.Last(); ok && timestamp.Before(last.Timestamp) {
		timestamp = last.Timestamp
	}

	msg := s.messages.Append(domain.Message{
		ID:        uuid.NewString(),
		Username:  username,
		Text:      draft.Text,
		Image:     draft.Image,
		Color:     color,
		Timestamp: timestamp,
	})
	for _, p := range s.publishers {
		p.Publish(msg)
	}

	users, retained := s.users.Len(), s.messages.Len()
	s.mu.Unlock()

	observability.ChatMessagesAppended.Inc()
	observability.RegisteredUsers.Set(float64(users))
	observability.RetainedMessages.Set(float64(retained))

	return msg, nil
}

// Snapshot returns the retained history and the full color map
func (s *ChatService) Snapshot(ctx context.Context) domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Attach calls fn with a snapshot while holding the write lock, so no message
// can be appended between the snapshot and whatever fn registers.
func (s *ChatService) Attach(ctx context.Context, fn func(domain.Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.snapshotLocked())
}

func (s *ChatService) snapshotLocked() domain.Snapshot {
	return domain.Snapshot{
		Messages: s.messages.LastN(s.messages.Capacity()),
		Colors:   s.users.SnapshotColors(),
	}
}

func (s *ChatService) ColorOf(ctx context.Context, username string) (domain.Color, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.ColorOf(username)
}

// Resume returns the user behind a valid session. A name the registry lost
// (for example across a restart) is registered again with a fresh color; a
// name another session holds is ErrUnauthenticated.
func (s *ChatService) Resume(ctx context.Context, id domain.Identity) (domain.User, error) {
	if id.Username == "" {
		return domain.User{}, domain.ErrUnauthenticated
	}

	s.mu.Lock()
	_, known := s.users.ColorOf(id.Username)
	color, err := s.users.EnsureRegistered(id.Username, id.SessionID)
	users := s.users.Len()
	s.mu.Unlock()

	if err != nil {
		logStaleSession(ctx, id)
		return domain.User{}, domain.ErrUnauthenticated
	}
	if !known {
		observability.RegisteredUsers.Set(float64(users))
		observability.FromContext(ctx).Info("session resumed without registry entry",
			slog.String("username", id.Username),
			slog.String("color", string(color)))
	}
	return domain.User{Username: id.Username, Color: color}, nil
}

// Release frees the caller's username on logout. A name held by another
// session is left alone.
func (s *ChatService) Release(ctx context.Context, id domain.Identity) bool {
	s.mu.Lock()
	released := s.users.Release(id.Username, id.SessionID)
	users := s.users.Len()
	s.mu.Unlock()

	if released {
		observability.RegisteredUsers.Set(float64(users))
		observability.FromContext(ctx).Info("user released", slog.String("username", id.Username))
	}
	return released
}

func logStaleSession(ctx context.Context, id domain.Identity) {
	observability.FromContext(ctx).Warn("session no longer holds its username",
		slog.String("username", id.Username),
		slog.String("session_id", id.SessionID))
}

func (s *ChatService) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		Users:    s.users.Len(),
		Retained: s.messages.Len(),
		Total:    s.messages.Total(),
	}
}
