package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"lounge-chat/internal/config"
	"lounge-chat/internal/delivery"
	"lounge-chat/internal/handler"
	"lounge-chat/internal/messaging"
	"lounge-chat/internal/middleware"
	"lounge-chat/internal/repository/memory"
	"lounge-chat/internal/security"
	"lounge-chat/internal/service"
	"lounge-chat/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	rabbitMQAttempts = 10
	rabbitMQDelay    = 3 * time.Second
)

// app holds the wired chat server
type app struct {
	cfg      *config.Config
	chat     *service.ChatService
	sessions *service.SessionService
	hub      *websocket.Hub
	rmq      *messaging.RabbitMQ
	feed     *messaging.Feed
	router   http.Handler
	wg       sync.WaitGroup
}

// newApp wires the chat state, the push hub and, when configured, the
// RabbitMQ feed. ctx bounds the broker dial and every background goroutine.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	chat := service.NewChatService(
		memory.NewUserRegistry(nil),
		memory.NewMessageLog(cfg.HistoryLimit),
		service.NewMessageValidator(cfg.SniffImages),
	)

	sessions, err := service.NewSessionService(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		chat:     chat,
		sessions: sessions,
		hub:      websocket.NewHub(),
	}
	chat.AddPublisher(a.hub)

	if cfg.FeedEnabled() {
		rmq, err := messaging.NewRabbitMQWithRetry(ctx, cfg.RabbitMQURL, rabbitMQAttempts, rabbitMQDelay)
		if err != nil {
			return nil, fmt.Errorf("connect to rabbitmq: %w", err)
		}
		a.rmq = rmq
		a.feed = messaging.NewFeed(rmq, messaging.DefaultFeedQueueSize)
		chat.AddPublisher(a.feed)
		slog.Info("connected to rabbitmq")
	}

	a.router, err = a.routes(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// Start runs the hub and the feed until ctx is cancelled
func (a *app) Start(ctx context.Context) {
	a.run(ctx, "hub", a.hub.Run)
	if a.feed != nil {
		a.run(ctx, "feed", a.feed.Run)
	}
}

func (a *app) run(ctx context.Context, name string, fn func(context.Context) error) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("background task failed", slog.String("task", name), slog.String("error", err.Error()))
		}
	}()
}

// Wait blocks until background tasks return or ctx expires
func (a *app) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("background tasks did not stop in time")
	}
}

func (a *app) Router() http.Handler {
	return a.router
}

func (a *app) Close() {
	if a.rmq != nil {
		if err := a.rmq.Close(); err != nil {
			slog.Warn("failed to close rabbitmq connection", slog.String("error", err.Error()))
		}
	}
}

func (a *app) routes(ctx context.Context) (http.Handler, error) {
	origins := middleware.ParseOrigins(a.cfg.AllowedOrigins)

	authHandler := handler.NewAuthHandler(a.chat, a.sessions, a.cfg.IsProduction())
	chatHandler := handler.NewChatHandler(a.chat, a.cfg.PollInterval)
	wsHandler := handler.NewWebSocketHandler(ctx, a.hub, a.chat, origins)

	var feedCheck handler.ConnectionChecker
	if a.rmq != nil {
		feedCheck = a.rmq
	}
	healthHandler := handler.NewHealthHandler(a.chat, a.hub, feedCheck)

	strategies, err := delivery.FromMode(a.cfg.DeliveryMode,
		delivery.NewPush(wsHandler.HandleConnection),
		delivery.NewPull(chatHandler.Snapshot))
	if err != nil {
		return nil, err
	}
	slog.Info("delivery strategies enabled", slog.Any("strategies", delivery.Names(strategies)))

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(origins))
	r.Use(middleware.Metrics())
	r.Use(middleware.BodyLimit(handler.MaxRequestBody))
	r.Use(middleware.OpenAPIValidator(middleware.DefaultOpenAPIValidatorConfig(a.cfg.OpenAPIValidation)))

	r.Get("/health", healthHandler.Health)
	r.Get("/health/ready", healthHandler.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, "not_found", "Not Found")
	})

	authLimiter := middleware.NewRateLimiter(ctx, 5, 10)
	apiLimiter := middleware.NewRateLimiter(ctx, 20, 50)

	r.With(authLimiter.Middleware()).Post("/api/v1/register", authHandler.Register)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(a.sessions))
		r.Use(middleware.CSRF(security.NewTokenManager()))
		r.Use(apiLimiter.Middleware())

		r.Post("/api/v1/logout", authHandler.Logout)
		r.Get("/api/v1/me", authHandler.Me)
		r.Post("/api/v1/messages", chatHandler.Send)

		for _, s := range strategies {
			s.Mount(r)
		}
	})

	return r, nil
}
