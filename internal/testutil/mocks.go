// Package testutil provides shared test utilities, mocks, and fixtures
// for testing the lounge-chat application.
package testutil

import (
	"context"
	"sync"

	"lounge-chat/internal/domain"
)

// SubmitCall records a call to Submit
type SubmitCall struct {
	Identity domain.Identity
	Draft    domain.Draft
}

// MockSubmitter records drafts and returns a finalized message for each
type MockSubmitter struct {
	mu sync.Mutex

	// Function override - set this to customize behavior
	SubmitFunc func(ctx context.Context, id domain.Identity, draft domain.Draft) (domain.Message, error)

	Calls []SubmitCall
}

func NewMockSubmitter() *MockSubmitter {
	return &MockSubmitter{}
}

func (m *MockSubmitter) Submit(ctx context.Context, id domain.Identity, draft domain.Draft) (domain.Message, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, SubmitCall{Identity: id, Draft: draft})
	seq := uint64(len(m.Calls))
	m.mu.Unlock()

	if m.SubmitFunc != nil {
		return m.SubmitFunc(ctx, id, draft)
	}
	return NewTestMessage(
		WithSeq(seq),
		WithMessageUsername(id.Username),
		WithText(draft.Text),
		WithImage(draft.Image),
	), nil
}

// GetCalls returns all recorded submit calls
func (m *MockSubmitter) GetCalls() []SubmitCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SubmitCall{}, m.Calls...)
}

// MockPublisher implements domain.MessagePublisher and records every message
type MockPublisher struct {
	mu       sync.Mutex
	Messages []domain.Message
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(msg domain.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, msg)
}

// GetMessages returns all published messages in order
func (m *MockPublisher) GetMessages() []domain.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Message{}, m.Messages...)
}

// MockConnection reports a fixed connection state for readiness checks
type MockConnection struct {
	mu     sync.RWMutex
	closed bool
}

func NewMockConnection(closed bool) *MockConnection {
	return &MockConnection{closed: closed}
}

func (m *MockConnection) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *MockConnection) SetClosed(closed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = closed
}
