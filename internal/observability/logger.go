package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type attrsKey struct{}

var logger *slog.Logger

// InitLogger installs the process logger writing to stdout
func InitLogger(level, format string) {
	InitLoggerWithWriter(os.Stdout, level, format)
}

// InitLoggerWithWriter installs the process logger writing to w. It also
// becomes slog's default so library code logging through slog lands in the
// same stream.
func InitLoggerWithWriter(w io.Writer, level, format string) {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger = slog.New(handler).With(slog.String("service", "lounge-chat"))
	slog.SetDefault(logger)
}

// FromContext returns the process logger carrying every attribute attached
// to ctx along the request path.
func FromContext(ctx context.Context) *slog.Logger {
	base := logger
	if base == nil {
		base = slog.Default()
	}
	attrs, _ := ctx.Value(attrsKey{}).([]slog.Attr)
	if len(attrs) == 0 {
		return base
	}
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return base.With(args...)
}

// WithRequestID tags later log lines with the request id
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withAttrs(ctx, slog.String("request_id", requestID))
}

// WithSession tags later log lines with the chat identity behind a request
// or connection. An empty value clears that key.
func WithSession(ctx context.Context, username, sessionID string) context.Context {
	return withAttrs(ctx,
		slog.String("username", username),
		slog.String("session_id", sessionID))
}

// withAttrs copies the attribute list so sibling contexts never share a
// backing array. A key set twice keeps the newest value.
func withAttrs(ctx context.Context, attrs ...slog.Attr) context.Context {
	prev, _ := ctx.Value(attrsKey{}).([]slog.Attr)
	next := make([]slog.Attr, 0, len(prev)+len(attrs))
	for _, a := range prev {
		if !hasKey(attrs, a.Key) {
			next = append(next, a)
		}
	}
	for _, a := range attrs {
		if a.Value.String() != "" {
			next = append(next, a)
		}
	}
	return context.WithValue(ctx, attrsKey{}, next)
}

func hasKey(attrs []slog.Attr, key string) bool {
	for _, a := range attrs {
		if a.Key == key {
			return true
		}
	}
	return false
}

// parseLevel accepts slog's level names in any case, including offsets
// such as "warn+2". Anything unparseable logs at info.
func parseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
