package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"lounge-chat/internal/domain"
	"lounge-chat/internal/observability"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second // Must be less than pongWait

	// a send_message frame carries at most a full-size image plus its envelope
	maxFrameSize = domain.MaxImageLength + 64*1024

	submitTimeout = 5 * time.Second
)

// Submitter accepts drafts on behalf of an authenticated user
type Submitter interface {
	Submit(ctx context.Context, id domain.Identity, draft domain.Draft) (domain.Message, error)
}

type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	username  string
	sessionID string
	submitter Submitter
	writeMu   sync.Mutex
	closed    atomic.Bool
	ctx       context.Context
	ctxCancel context.CancelFunc
}

func NewClient(ctx context.Context, hub *Hub, conn *websocket.Conn, id domain.Identity, submitter Submitter) *Client {
	clientCtx, cancel := context.WithCancel(ctx)

	return &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, clientQueueSize),
		username:  id.Username,
		sessionID: id.SessionID,
		submitter: submitter,
		ctx:       clientCtx,
		ctxCancel: cancel,
	}
}

func (c *Client) Username() string {
	return c.username
}

// ReadPump reads send_message frames until the connection fails
func (c *Client) ReadPump() {
	defer func() {
		c.ctxCancel()
		c.hub.Unregister(c)
		c.closeConnection()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		slog.Warn("failed to set read deadline",
			slog.String("error", err.Error()),
			slog.String("user", c.username))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Warn("websocket error",
					slog.String("error", err.Error()),
					slog.String("user", c.username))
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.Warn("invalid message format",
				slog.String("error", err.Error()),
				slog.String("user", c.username))
			continue
		}

		if frame.Type != FrameSendMessage {
			slog.Warn("unknown frame type",
				slog.String("type", frame.Type),
				slog.String("user", c.username))
			continue
		}

		c.submit(domain.Draft{Text: frame.Text, Image: frame.Image})
	}
}

// submit hands a draft to the chat service. The accepted message comes back
// to this client through the hub broadcast; only errors are replied directly.
func (c *Client) submit(draft domain.Draft) {
	ctx, cancel := context.WithTimeout(observability.WithSession(c.ctx, c.username, c.sessionID), submitTimeout)
	defer cancel()

	if _, err := c.submitter.Submit(ctx, domain.Identity{Username: c.username, SessionID: c.sessionID}, draft); err != nil {
		if !domain.IsUserError(err) {
			slog.Error("error submitting message",
				slog.String("error", err.Error()),
				slog.String("user", c.username))
		}
		c.hub.Reply(c, NewErrorFrame(err))
	}
}

// WritePump pumps frames from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				// Hub closed the channel
				_ = c.writeMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.writeMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			if err := c.writeMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// writeMessage writes a message to the WebSocket connection in a thread-safe manner
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.closed.Load() {
		return websocket.ErrCloseSent
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		slog.Warn("failed to set write deadline",
			slog.String("error", err.Error()),
			slog.String("user", c.username))
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// closeConnection safely closes the WebSocket connection
func (c *Client) closeConnection() {
	if c.closed.CompareAndSwap(false, true) {
		c.writeMu.Lock()
		c.conn.Close()
		c.writeMu.Unlock()
	}
}
