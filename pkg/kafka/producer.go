package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Bilingual-Blog-Search/pkg/config"
	"github.com/segmentio/kafka-go"
)

type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer writes to topic, hashing keys so every event for one post or
// one query lands on the same partition.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchSize:              100,
			BatchTimeout:           10 * time.Millisecond,
			MaxAttempts:            3,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish writes one event and waits for the brokers to acknowledge it.
func (p *Producer) Publish(ctx context.Context, e Event) error {
	return p.PublishBatch(ctx, []Event{e})
}

// PublishBatch writes events in one call. Nothing is sent if any event
// fails to encode.
func (p *Producer) PublishBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, len(events))
	for i, e := range events {
		m, err := encode(e)
		if err != nil {
			return err
		}
		msgs[i] = m
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		p.logger.Error("publish failed", "count", len(msgs), "first_type", events[0].Type, "error", err)
		return fmt.Errorf("publishing %d events: %w", len(msgs), err)
	}
	p.logger.Debug("published", "count", len(msgs), "first_key", events[0].Key)
	return nil
}

// Close flushes buffered writes.
func (p *Producer) Close() error {
	return p.writer.Close()
}
