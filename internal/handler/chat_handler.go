package handler

import (
	"errors"
	"net/http"
	"time"

	"lounge-chat/internal/domain"
	"lounge-chat/internal/middleware"
	"lounge-chat/internal/service"
)

// MaxRequestBody is the largest request body the API reads: a message
// carrying a full-size image plus its JSON envelope
const MaxRequestBody = domain.MaxImageLength + 64*1024

// ChatHandler serves the pull delivery endpoints
type ChatHandler struct {
	chat         *service.ChatService
	pollInterval time.Duration
}

// NewChatHandler creates a new chat handler
func NewChatHandler(chat *service.ChatService, pollInterval time.Duration) *ChatHandler {
	return &ChatHandler{
		chat:         chat,
		pollInterval: pollInterval,
	}
}

// SnapshotResponse is the body of a poll
type SnapshotResponse struct {
	Messages       []domain.Message        `json:"messages"`
	Colors         map[string]domain.Color `json:"colors"`
	PollIntervalMs int64                   `json:"poll_interval_ms"`
}

// Snapshot returns the retained history and the color map. It has no side
// effects, so clients may poll it freely.
func (h *ChatHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap := h.chat.Snapshot(r.Context())

	resp := SnapshotResponse{
		Messages:       snap.Messages,
		Colors:         snap.Colors,
		PollIntervalMs: h.pollInterval.Milliseconds(),
	}
	if resp.Messages == nil {
		resp.Messages = []domain.Message{}
	}
	if resp.Colors == nil {
		resp.Colors = map[string]domain.Color{}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, resp)
}

// Send submits a message as the session's user
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeError(w, r, domain.ErrUnauthenticated)
		return
	}

	var draft domain.Draft
	if err := decodeBody(w, r, MaxRequestBody, &draft); err != nil {
		if errors.Is(err, ErrBodyTooLarge) {
			writeError(w, r, domain.ErrImageTooLarge)
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, middleware.CodeValidationFailed, "Invalid request body")
		return
	}

	msg, err := h.chat.Submit(r.Context(), id, draft)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}
