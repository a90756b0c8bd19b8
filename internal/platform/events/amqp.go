// Copyright (c) 2026 Stella. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher publishes events to a durable RabbitMQ queue over a single
// long-lived connection.
type AMQPPublisher struct {
	mu         sync.Mutex
	connection *amqp.Connection
	channel    *amqp.Channel
	queue      string
	logger     *slog.Logger
}

/*
NewAMQPPublisher dials the broker and declares the destination queue.

Parameters:
  - url: string (amqp:// connection URL)
  - queue: string (Durable queue name, also used as routing key)
  - logger: *slog.Logger

Returns:
  - *AMQPPublisher: Ready publisher
  - error: Dial, channel or declaration failures
*/
func NewAMQPPublisher(url, queue string, logger *slog.Logger) (*AMQPPublisher, error) {
	connection, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp: dial failed: %w", err)
	}

	channel, err := connection.Channel()
	if err != nil {
		_ = connection.Close()
		return nil, fmt.Errorf("amqp: channel open failed: %w", err)
	}

	// Durable so messages survive broker restarts.
	if _, err := channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = connection.Close()
		return nil, fmt.Errorf("amqp: queue declare failed: %w", err)
	}

	logger.Info("amqp publisher connected", slog.String("queue", queue))

	return &AMQPPublisher{
		connection: connection,
		channel:    channel,
		queue:      queue,
		logger:     logger,
	}, nil
}

// Publish sends event as a persistent JSON message on the default exchange.
func (publisher *AMQPPublisher) Publish(context context.Context, event SessionEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("amqp: marshal event failed: %w", err)
	}

	message := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(event.Type),
		Body:         body,
	}

	// A channel must not be used for concurrent publishes.
	publisher.mu.Lock()
	defer publisher.mu.Unlock()

	if err := publisher.channel.PublishWithContext(context, "", publisher.queue, false, false, message); err != nil {
		return fmt.Errorf("amqp: publish failed: %w", err)
	}

	return nil
}

// Close shuts down the channel and the connection.
func (publisher *AMQPPublisher) Close() error {
	publisher.mu.Lock()
	defer publisher.mu.Unlock()

	if err := publisher.channel.Close(); err != nil {
		publisher.logger.Warn("amqp_channel_close_failed", slog.String("error", err.Error()))
	}
	return publisher.connection.Close()
}
