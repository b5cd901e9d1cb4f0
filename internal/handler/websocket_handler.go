package handler

import (
	"context"
	"log/slog"
	"net/http"

	"lounge-chat/internal/domain"
	"lounge-chat/internal/middleware"
	"lounge-chat/internal/observability"
	"lounge-chat/internal/service"
	ws "lounge-chat/internal/websocket"

	"github.com/gorilla/websocket"
)

// WebSocketHandler upgrades authenticated requests to push subscriptions
type WebSocketHandler struct {
	ctx      context.Context
	hub      *ws.Hub
	chat     *service.ChatService
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler. Client goroutines live
// until ctx is cancelled or the connection drops.
func NewWebSocketHandler(ctx context.Context, hub *ws.Hub, chat *service.ChatService, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		ctx:  ctx,
		hub:  hub,
		chat: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// non-browser clients send no Origin
				if origin == "" {
					return true
				}
				return middleware.OriginAllowed(allowedOrigins, origin)
			},
		},
	}
}

// HandleConnection handles WebSocket upgrade and subscription
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, r, domain.ErrUnauthenticated)
		return
	}

	if _, err := h.chat.Resume(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written an error response
		observability.FromContext(r.Context()).Warn("websocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}

	client := ws.NewClient(h.ctx, h.hub, conn, id, h.chat)

	if err := h.hub.Subscribe(r.Context(), h.chat, client); err != nil {
		observability.FromContext(r.Context()).Warn("websocket subscribe failed",
			slog.String("error", err.Error()))
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
