package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// Consumer tails the message feed through a private, auto-deleted queue
type Consumer struct {
	rmq *RabbitMQ
}

func NewConsumer(rmq *RabbitMQ) *Consumer {
	return &Consumer{rmq: rmq}
}

// Start binds a queue to the messages exchange and calls handle for every
// event until ctx is cancelled or the channel closes. It returns once the
// queue is bound.
func (c *Consumer) Start(ctx context.Context, handle func(*MessageEvent)) (<-chan struct{}, error) {
	queue, err := c.rmq.channel.QueueDeclare(
		"",    // auto-generated name
		false, // durable
		true,  // delete when unused
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare feed queue: %w", err)
	}

	if err := c.rmq.channel.QueueBind(
		queue.Name,       // queue name
		"",               // routing key
		MessagesExchange, // exchange
		false,
		nil,
	); err != nil {
		return nil, fmt.Errorf("failed to bind feed queue: %w", err)
	}

	msgs, err := c.rmq.channel.Consume(
		queue.Name, // queue
		"",         // consumer
		true,       // auto-ack
		true,       // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("started consuming message feed",
		slog.String("queue", queue.Name),
		slog.String("exchange", MessagesExchange))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				slog.Info("stopping feed consumer")
				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Warn("feed consumer channel closed")
					return
				}

				var event MessageEvent
				if err := json.Unmarshal(msg.Body, &event); err != nil {
					slog.Error("error unmarshaling message event",
						slog.String("error", err.Error()),
						slog.Int("body_size", len(msg.Body)))
					continue
				}

				handle(&event)
			}
		}
	}()

	return done, nil
}
