package messaging

import (
	"context"
	"log/slog"
	"time"

	"lounge-chat/internal/domain"
	"lounge-chat/internal/observability"
)

const (
	DefaultFeedQueueSize = 1024
	publishTimeout       = 5 * time.Second
)

// EventPublisher delivers message events to an external broker
type EventPublisher interface {
	PublishMessage(ctx context.Context, event *MessageEvent) error
}

// Feed forwards finalized chat messages to an EventPublisher. Publish never
// blocks; the broker I/O happens on the Run goroutine and events that do not
// fit in the queue are dropped.
type Feed struct {
	publisher EventPublisher
	queue     chan domain.Message
}

func NewFeed(publisher EventPublisher, queueSize int) *Feed {
	if queueSize <= 0 {
		queueSize = DefaultFeedQueueSize
	}
	return &Feed{
		publisher: publisher,
		queue:     make(chan domain.Message, queueSize),
	}
}

// Publish implements domain.MessagePublisher
func (f *Feed) Publish(msg domain.Message) {
	select {
	case f.queue <- msg:
	default:
		observability.FeedEventsDropped.WithLabelValues("queue_full").Inc()
		slog.Warn("feed queue full, dropping event", slog.String("message_id", msg.ID))
	}
}

// Run drains the queue until ctx is cancelled
func (f *Feed) Run(ctx context.Context) error {
	slog.Info("event feed started")

	for {
		select {
		case <-ctx.Done():
			slog.Info("event feed stopped", slog.Int("pending", len(f.queue)))
			return ctx.Err()

		case msg := <-f.queue:
			f.forward(ctx, msg)
		}
	}
}

func (f *Feed) forward(ctx context.Context, msg domain.Message) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := f.publisher.PublishMessage(ctx, NewMessageEvent(msg)); err != nil {
		observability.FeedEventsDropped.WithLabelValues("publish_error").Inc()
		slog.Error("failed to publish message event",
			slog.String("error", err.Error()),
			slog.String("message_id", msg.ID))
		return
	}

	observability.FeedEventsPublished.Inc()
}
