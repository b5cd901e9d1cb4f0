package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lounge-chat/internal/config"
	"lounge-chat/internal/observability"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "chat-server",
	Short:        "Single-room chat over WebSocket push and HTTP polling",
	SilenceUsage: true,
	RunE:         runServer,
}

var (
	flagPort     string
	flagDelivery string
)

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagPort, "port", "", "HTTP port (overrides PORT)")
	flags.StringVar(&flagDelivery, "delivery", "", "delivery mode: push, pull or both (overrides DELIVERY_MODE)")

	rootCmd.AddCommand(tailCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// flagOverrides applies command line flags that were set explicitly
func flagOverrides(cmd *cobra.Command) func(*config.Config) {
	return func(c *config.Config) {
		if cmd.Flags().Changed("port") {
			c.Port = flagPort
		}
		if cmd.Flags().Changed("delivery") {
			c.DeliveryMode = flagDelivery
		}
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagOverrides(cmd))
	if err != nil {
		return err
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("starting chat server",
		slog.String("environment", cfg.Environment),
		slog.String("delivery", cfg.DeliveryMode),
		slog.Int("history_limit", cfg.HistoryLimit),
		slog.Bool("feed", cfg.FeedEnabled()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := newApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer app.Close()

	app.Start(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      app.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("chat server listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	slog.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", slog.String("error", err.Error()))
	}

	app.Wait(shutdownCtx)
	slog.Info("server stopped gracefully")
	return nil
}
