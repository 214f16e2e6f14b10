// Package kafka publishes demo messages with a segmentio/kafka-go Writer.
package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/JakeFAU/kafka-viewer/internal/config"
)

type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes to a single topic.
type Publisher struct {
	w writer
}

// New creates a Publisher for the brokers and topic in cfg.
func New(cfg config.KafkaConfig) *Publisher {
	return &Publisher{w: &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}}
}

// Name implements publisher.Publisher.
func (p *Publisher) Name() string {
	return config.SourceKafka
}

// Publish writes values as one batch.
func (p *Publisher) Publish(ctx context.Context, values ...string) error {
	msgs := make([]kafka.Message, len(values))
	for i, v := range values {
		msgs[i] = kafka.Message{Value: []byte(v)}
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write kafka messages: %w", err)
	}
	return nil
}

// Close flushes pending writes.
func (p *Publisher) Close() error {
	if err := p.w.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}
