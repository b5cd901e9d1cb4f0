package domain

import (
	"errors"
	"time"
)

const (
	MaxTextLength  = 500
	MaxImageLength = 5 * 1024 * 1024
	ImageURIPrefix = "data:image/"

	DefaultHistoryLimit = 100
)

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrEmptyMessage    = errors.New("message must contain text or image")
	ErrTextTooLong     = errors.New("message text exceeds 500 characters")
	ErrInvalidImage    = errors.New("invalid image data")
	ErrImageTooLarge   = errors.New("image too large")
)

// Draft is a message as submitted by a client, before validation
type Draft struct {
	Text  string `json:"text"`
	Image string `json:"image,omitempty"`
}

// Message is a finalized chat entry. It is never mutated after append.
type Message struct {
	ID        string    `json:"id"`
	Seq       uint64    `json:"seq"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	Image     string    `json:"image,omitempty"`
	Color     Color     `json:"color"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is a consistent view of the recent history and the color map
type Snapshot struct {
	Messages []Message        `json:"messages"`
	Colors   map[string]Color `json:"colors"`
}

// MessageLog is the append-only, capacity-bounded history.
// Implementations are not required to be safe for concurrent use.
type MessageLog interface {
	Append(msg Message) Message
	LastN(n int) []Message
	Last() (Message, bool)
	Len() int
	Total() uint64
	Capacity() int
}

// MessagePublisher receives every finalized message in append order.
// Publish is called while the chat state is locked and must not block on I/O.
type MessagePublisher interface {
	Publish(msg Message)
}
