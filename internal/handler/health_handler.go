package handler

import (
	"net/http"

	"lounge-chat/internal/service"
)

const (
	checkUp       = "up"
	checkDown     = "down"
	checkDisabled = "disabled"
)

// StatsSource reports chat state counters
type StatsSource interface {
	Stats() service.Stats
}

// HubStatus reports on the push hub
type HubStatus interface {
	ActiveClients() int
	Done() <-chan struct{}
}

// ConnectionChecker reports whether a broker connection is closed
type ConnectionChecker interface {
	IsClosed() bool
}

// HealthResponse is the body of both health endpoints
type HealthResponse struct {
	Status           string            `json:"status"`
	Checks           map[string]string `json:"checks,omitempty"`
	Users            int               `json:"users"`
	RetainedMessages int               `json:"retained_messages"`
	TotalMessages    uint64            `json:"total_messages"`
	Subscribers      int               `json:"subscribers"`
}

// HealthHandler serves liveness and readiness
type HealthHandler struct {
	chat StatsSource
	hub  HubStatus
	feed ConnectionChecker
}

// NewHealthHandler creates a health handler. feed may be nil when the event
// feed is not configured.
func NewHealthHandler(chat StatsSource, hub HubStatus, feed ConnectionChecker) *HealthHandler {
	return &HealthHandler{
		chat: chat,
		hub:  hub,
		feed: feed,
	}
}

// Health returns basic health check
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.report("ok", nil))
}

// Ready reports not_ready with 503 when the hub has stopped or the feed lost
// its broker connection
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{
		"hub":  h.hubCheck(),
		"feed": h.feedCheck(),
	}

	status, code := "ready", http.StatusOK
	for _, c := range checks {
		if c == checkDown {
			status, code = "not_ready", http.StatusServiceUnavailable
			break
		}
	}

	writeJSON(w, code, h.report(status, checks))
}

func (h *HealthHandler) report(status string, checks map[string]string) HealthResponse {
	stats := h.chat.Stats()
	resp := HealthResponse{
		Status:           status,
		Checks:           checks,
		Users:            stats.Users,
		RetainedMessages: stats.Retained,
		TotalMessages:    stats.Total,
	}
	if h.hub != nil {
		resp.Subscribers = h.hub.ActiveClients()
	}
	return resp
}

func (h *HealthHandler) hubCheck() string {
	if h.hub == nil {
		return checkDisabled
	}
	select {
	case <-h.hub.Done():
		return checkDown
	default:
		return checkUp
	}
}

func (h *HealthHandler) feedCheck() string {
	if h.feed == nil {
		return checkDisabled
	}
	if h.feed.IsClosed() {
		return checkDown
	}
	return checkUp
}
