package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// WebSocket metrics
	WebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of subscribed WebSocket connections",
		},
	)

	WebSocketFramesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_frames_sent_total",
			Help: "Total number of frames queued to WebSocket subscribers",
		},
		[]string{"type"},
	)

	WebSocketSlowConsumers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_slow_consumers_total",
			Help: "Subscribers disconnected because their outbound queue was full",
		},
	)

	// Chat state metrics
	ChatMessagesAppended = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_appended_total",
			Help: "Total number of messages appended to the log",
		},
	)

	SubmitsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_submits_rejected_total",
			Help: "Rejected message submissions by error code",
		},
		[]string{"code"},
	)

	RegisteredUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_registered_users",
			Help: "Number of usernames currently held in the registry",
		},
	)

	RetainedMessages = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_retained_messages",
			Help: "Number of messages retained in the bounded log",
		},
	)

	// Event feed metrics
	FeedEventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_events_published_total",
			Help: "Messages published to the external event feed",
		},
	)

	FeedEventsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_events_dropped_total",
			Help: "Messages not published to the external event feed",
		},
		[]string{"reason"},
	)
)
