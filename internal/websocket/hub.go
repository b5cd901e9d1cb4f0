package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"

	"lounge-chat/internal/domain"
	"lounge-chat/internal/observability"
)

const (
	// clientQueueSize bounds each subscriber's outbound frames
	clientQueueSize = 256
	eventQueueSize  = 256
)

var ErrHubClosed = errors.New("hub is not running")

// Attacher hands out a snapshot at a fixed point of the append order
type Attacher interface {
	Attach(ctx context.Context, fn func(domain.Snapshot))
}

type eventKind int

const (
	eventAttach eventKind = iota
	eventDetach
	eventMessage
	eventDirect
)

type hubEvent struct {
	kind     eventKind
	client   *Client
	snapshot domain.Snapshot
	message  domain.Message
	frame    []byte
}

// Hub maintains subscribed clients and fans out finalized messages.
// All state changes arrive on a single FIFO channel, so attach events and
// messages are applied in the order the chat service produced them.
type Hub struct {
	// Subscribed clients, owned by the Run goroutine
	clients map[*Client]bool

	events chan hubEvent

	// Shutdown signal
	done chan struct{}

	active atomic.Int64
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		events:  make(chan hubEvent, eventQueueSize),
		done:    make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			slog.Info("hub shutting down gracefully")
			return ctx.Err()

		case ev := <-h.events:
			switch ev.kind {
			case eventAttach:
				h.attach(ev.client, ev.snapshot)
			case eventDetach:
				h.remove(ev.client, "client unregistered")
			case eventMessage:
				h.broadcast(ev.message)
			case eventDirect:
				if h.clients[ev.client] {
					h.deliver(ev.client, FrameError, ev.frame)
				}
			}
		}
	}
}

func (h *Hub) attach(client *Client, snap domain.Snapshot) {
	messages, colors, err := encodeSnapshot(snap)
	if err != nil {
		slog.Error("failed to encode snapshot",
			slog.String("error", err.Error()),
			slog.String("user", client.username))
		close(client.send)
		return
	}

	h.clients[client] = true
	h.active.Add(1)
	observability.WebSocketConnectionsActive.Inc()
	slog.Info("client subscribed",
		slog.String("user", client.username),
		slog.Int("history", len(snap.Messages)))

	if h.deliver(client, FrameLoadMessages, messages) {
		h.deliver(client, FrameUserColors, colors)
	}
}

func (h *Hub) broadcast(msg domain.Message) {
	if len(h.clients) == 0 {
		return
	}

	data, err := json.Marshal(NewMessageFrame{Type: FrameNewMessage, Message: msg})
	if err != nil {
		slog.Error("failed to marshal message",
			slog.String("error", err.Error()),
			slog.String("message_id", msg.ID))
		return
	}

	for client := range h.clients {
		h.deliver(client, FrameNewMessage, data)
	}
}

// deliver queues a frame without blocking. A client whose queue is full is
// disconnected.
func (h *Hub) deliver(client *Client, frameType string, data []byte) bool {
	select {
	case client.send <- data:
		observability.WebSocketFramesSent.WithLabelValues(frameType).Inc()
		return true
	default:
		observability.WebSocketSlowConsumers.Inc()
		h.remove(client, "slow client disconnected")
		return false
	}
}

// remove drops a subscribed client and closes its send queue
func (h *Hub) remove(client *Client, reason string) {
	if !h.clients[client] {
		return
	}

	delete(h.clients, client)
	h.active.Add(-1)
	close(client.send)
	observability.WebSocketConnectionsActive.Dec()
	slog.Info(reason, slog.String("user", client.username))
}

// shutdown performs graceful cleanup of all connections
func (h *Hub) shutdown() {
	close(h.done)

	for client := range h.clients {
		delete(h.clients, client)
		h.active.Add(-1)
		close(client.send)
		observability.WebSocketConnectionsActive.Dec()
		slog.Info("closed client connection", slog.String("user", client.username))
	}

	slog.Info("hub shutdown complete")
}

func (h *Hub) enqueue(ev hubEvent) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.events <- ev:
		return true
	case <-h.done:
		return false
	}
}

// Publish queues a finalized message for every subscriber. It is called
// with the chat state locked, in append order.
func (h *Hub) Publish(msg domain.Message) {
	h.enqueue(hubEvent{kind: eventMessage, message: msg})
}

// Subscribe attaches client at the current point of source's append order.
// The client receives the snapshot before any later message.
func (h *Hub) Subscribe(ctx context.Context, source Attacher, client *Client) error {
	attached := false
	source.Attach(ctx, func(snap domain.Snapshot) {
		attached = h.enqueue(hubEvent{kind: eventAttach, client: client, snapshot: snap})
	})
	if !attached {
		return ErrHubClosed
	}
	return nil
}

// Reply sends an error frame to a single client
func (h *Hub) Reply(client *Client, frame ErrorFrame) {
	data, err := json.Marshal(frame)
	if err != nil {
		slog.Error("failed to marshal error frame", slog.String("error", err.Error()))
		return
	}
	h.enqueue(hubEvent{kind: eventDirect, client: client, frame: data})
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.enqueue(hubEvent{kind: eventDetach, client: client})
}

// ActiveClients returns the number of subscribed clients
func (h *Hub) ActiveClients() int {
	return int(h.active.Load())
}

// Done is closed once the hub has stopped
func (h *Hub) Done() <-chan struct{} {
	return h.done
}
