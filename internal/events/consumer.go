package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultConsumerGroup is used when ConsumerConfig.Group is empty.
const DefaultConsumerGroup = "catalog-consumer-group"

// StreamReader is the Redis subset the consumer reads with.
type StreamReader interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// HandlerFunc receives one decoded batch event. A returned error leaves the
// message unacknowledged so it is redelivered.
type HandlerFunc func(ctx context.Context, payload *ListingsUpsertedPayload) error

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Stream   string
	Group    string
	Consumer string
	Count    int64
	Block    time.Duration
}

// Consumer reads batch events from the catalog stream through a consumer group.
type Consumer struct {
	redis   StreamReader
	handler HandlerFunc
	config  ConsumerConfig
	logger  *slog.Logger
}

// NewConsumer creates a new stream consumer
func NewConsumer(client StreamReader, handler HandlerFunc, config ConsumerConfig, logger *slog.Logger) *Consumer {
	if config.Group == "" {
		config.Group = DefaultConsumerGroup
	}
	if config.Consumer == "" {
		config.Consumer = "consumer-1"
	}
	if config.Count <= 0 {
		config.Count = 10
	}
	if config.Block <= 0 {
		config.Block = 5 * time.Second
	}

	return &Consumer{
		redis:   client,
		handler: handler,
		config:  config,
		logger:  logger.With("component", "catalog_consumer", "stream", config.Stream),
	}
}

// Run creates the consumer group if needed and handles messages until ctx
// is done.
func (c *Consumer) Run(ctx context.Context) error {
	err := c.redis.XGroupCreateMkStream(ctx, c.config.Stream, c.config.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("consumer started", "group", c.config.Group)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := c.poll(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("failed to read from stream", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}
	}
}

// poll reads one round of messages and reports how many were acknowledged.
func (c *Consumer) poll(ctx context.Context) (int, error) {
	streams, err := c.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.config.Group,
		Consumer: c.config.Consumer,
		Streams:  []string{c.config.Stream, ">"},
		Count:    c.config.Count,
		Block:    c.config.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}

	acked := 0
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			if err := c.handle(ctx, msg); err != nil {
				c.logger.Error("failed to process message", "id", msg.ID, "error", err)
				continue
			}
			if err := c.redis.XAck(ctx, c.config.Stream, c.config.Group, msg.ID).Err(); err != nil {
				c.logger.Error("failed to acknowledge message", "id", msg.ID, "error", err)
				continue
			}
			acked++
		}
	}
	return acked, nil
}

func (c *Consumer) handle(ctx context.Context, msg redis.XMessage) error {
	// other event types are acknowledged and skipped
	if t, _ := msg.Values["event_type"].(string); t != string(EventTypeListingsUpserted) {
		return nil
	}

	payload, err := DecodeListingsUpserted(msg.Values)
	if err != nil {
		return err
	}
	return c.handler(ctx, payload)
}

// DecodeListingsUpserted unwraps the relay envelope stored under "data".
func DecodeListingsUpserted(values map[string]any) (*ListingsUpsertedPayload, error) {
	data, ok := values["data"].(string)
	if !ok || data == "" {
		return nil, errors.New("message has no data field")
	}

	var envelope struct {
		Type    string                  `json:"type"`
		Payload ListingsUpsertedPayload `json:"payload"`
	}
	if err := json.Unmarshal([]byte(data), &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode envelope: %w", err)
	}
	if envelope.Type != string(EventTypeListingsUpserted) {
		return nil, fmt.Errorf("unexpected event type %q", envelope.Type)
	}
	return &envelope.Payload, nil
}
