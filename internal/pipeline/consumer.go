package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/podsift/podsift/internal/lifecycle"
)

// EventConsumer consumes pipeline progress events from Redis Streams
type EventConsumer struct {
	rdb          *redis.Client
	groupName    string
	consumerName string
}

// NewEventConsumer creates a new EventConsumer instance
func NewEventConsumer(redisURL, consumerName string) (*EventConsumer, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	// Read timeout must exceed the XReadGroup Block duration (5s)
	// to avoid spurious i/o timeout errors on idle streams.
	opts.ReadTimeout = 10 * time.Second

	client := redis.NewClient(opts)

	// Create consumer group on ingest:events stream
	// Start ID "0" means read from beginning if group is new
	err = client.XGroupCreateMkStream(context.Background(), StreamIngestEvents, GroupGoWorkers, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("failed to create consumer group: %w", err)
	}
	// Ignore BUSYGROUP error - group already exists

	return &EventConsumer{
		rdb:          client,
		groupName:    GroupGoWorkers,
		consumerName: consumerName,
	}, nil
}

// ConsumeEvents runs a blocking loop consuming progress events from the stream
func (c *EventConsumer) ConsumeEvents(ctx context.Context, handler func(ProgressEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Read from stream with consumer group
		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.groupName,
			Consumer: c.consumerName,
			Streams:  []string{StreamIngestEvents, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err == redis.Nil {
			// No messages available, continue loop
			continue
		}

		if err != nil {
			// Blocking reads return a timeout when no messages arrive
			// within the Block duration — this is normal, not an error.
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			slog.Error("Failed to read from stream", "error", err)
			continue
		}

		// Process messages
		for _, stream := range streams {
			for _, message := range stream.Messages {
				// Extract payload from message values
				payloadStr, ok := message.Values["payload"].(string)
				if !ok {
					slog.Error("Invalid message payload", "message_id", message.ID)
					continue
				}

				// Unmarshal event
				var event ProgressEvent
				if err := json.Unmarshal([]byte(payloadStr), &event); err != nil {
					slog.Error("Failed to unmarshal event", "error", err, "message_id", message.ID)
					continue
				}

				// Call handler
				if err := handler(event); err != nil {
					slog.Error("Handler failed", "error", err, "request_id", event.RequestID)
					// Message stays in PEL for retry, don't ACK
					continue
				}

				// ACK successful processing
				if err := c.rdb.XAck(ctx, StreamIngestEvents, c.groupName, message.ID).Err(); err != nil {
					slog.Error("Failed to ACK message", "error", err, "message_id", message.ID)
				}
			}
		}
	}
}

// Close closes the Redis client connection
func (c *EventConsumer) Close() error {
	return c.rdb.Close()
}

// StartEventConsumer is a convenience function that starts the event consumer
// in a background goroutine and returns a stop function
func StartEventConsumer(redisURL string, ctrl *lifecycle.Controller) (stop func(), err error) {
	consumer, err := NewEventConsumer(redisURL, "go-worker-1")
	if err != nil {
		return nil, fmt.Errorf("failed to create event consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Start consumer in background goroutine
	go func() {
		if err := consumer.ConsumeEvents(ctx, HandleProgressEvent(ctx, ctrl)); err != nil {
			if err != context.Canceled {
				slog.Error("Event consumer stopped with error", "error", err)
			}
		}
	}()

	slog.Info("Pipeline event consumer started")

	// Return stop function that cancels context and closes consumer
	return func() {
		cancel()
		consumer.Close()
	}, nil
}
