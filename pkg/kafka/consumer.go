package kafka

import (
	"context"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/resilience"
	"github.com/segmentio/kafka-go"
)

// MessageHandler processes one message. An error triggers redelivery.
type MessageHandler func(ctx context.Context, msg Message) error

// redelivery bounds how often a failing message is handed back to the
// handler before it is committed and skipped.
var redelivery = resilience.Backoff{Attempts: 3, Base: 200 * time.Millisecond, Cap: 2 * time.Second}

type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	logger  *slog.Logger
}

// NewConsumer joins groupID on topic. Blog instances pass a group of their
// own so each sees every content change; the analytics service shares one.
// New groups start at the newest offset.
func NewConsumer(cfg config.KafkaConfig, topic, groupID string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			GroupID:     groupID,
			MinBytes:    1,
			MaxBytes:    10e6,
			StartOffset: kafka.LastOffset,
		}),
		handler: handler,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic, "group", groupID),
	}
}

// Start consumes until ctx is done, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.logger.Info("consumer stopped")
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return c.reader.Close()
			}
			c.logger.Error("fetch failed", "error", err)
			continue
		}
		c.process(ctx, m)
		if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed", "partition", m.Partition, "offset", m.Offset, "error", err)
		}
	}
}

func (c *Consumer) process(ctx context.Context, m kafka.Message) {
	msg := decode(m)
	err := resilience.Retry(ctx, "kafka-handler", redelivery, func(ctx context.Context) error {
		return c.handler(ctx, msg)
	})
	if err != nil && ctx.Err() == nil {
		c.logger.Error("dropping message after redelivery",
			"partition", m.Partition,
			"offset", m.Offset,
			"type", msg.Type,
			"error", err,
		)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
