package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lounge-chat/internal/messaging"

	"github.com/spf13/cobra"
)

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print chat messages mirrored to the RabbitMQ feed",
	RunE:  runTail,
}

var flagRabbitMQURL string

func init() {
	tailCmd.Flags().StringVar(&flagRabbitMQURL, "rabbitmq-url", os.Getenv("RABBITMQ_URL"), "AMQP URL of the feed broker (from env RABBITMQ_URL if set)")
}

func runTail(cmd *cobra.Command, args []string) error {
	if flagRabbitMQURL == "" {
		return errors.New("no broker configured: set --rabbitmq-url or RABBITMQ_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rmq, err := messaging.NewRabbitMQWithRetry(ctx, flagRabbitMQURL, 5, 2*time.Second)
	if err != nil {
		return err
	}
	defer rmq.Close()

	out := cmd.OutOrStdout()
	done, err := messaging.NewConsumer(rmq).Start(ctx, func(ev *messaging.MessageEvent) {
		fmt.Fprintln(out, formatEvent(ev))
	})
	if err != nil {
		return err
	}

	<-done
	return nil
}

func formatEvent(ev *messaging.MessageEvent) string {
	line := fmt.Sprintf("%s #%d %s: %s", ev.Timestamp.Format(time.TimeOnly), ev.Seq, ev.Username, ev.Text)
	if ev.HasImage {
		line += " [image]"
	}
	return line
}
