package consumer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/JakeFAU/kafka-viewer/internal/config"
)

type kafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaSource reads a topic through a consumer group, starting at the newest offset.
type KafkaSource struct {
	reader kafkaReader
	logger *zap.Logger
}

// NewKafkaSource builds a group reader for cfg.
func NewKafkaSource(cfg config.KafkaConfig, logger *zap.Logger) (*KafkaSource, error) {
	for _, b := range cfg.Brokers {
		if strings.TrimSpace(b) == "" {
			return nil, errors.New("kafka reader config: blank broker address")
		}
	}
	rc := kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		StartOffset: kafka.LastOffset,
		MaxWait:     time.Second,
	}
	if err := rc.Validate(); err != nil {
		return nil, fmt.Errorf("kafka reader config: %w", err)
	}
	return newKafkaSource(kafka.NewReader(rc), logger), nil
}

func newKafkaSource(reader kafkaReader, logger *zap.Logger) *KafkaSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaSource{reader: reader, logger: logger}
}

// Name implements Source.
func (s *KafkaSource) Name() string {
	return config.SourceKafka
}

// Run reads messages until ctx is cancelled or the reader is closed.
// With a group ID, offsets are committed as messages are read.
func (s *KafkaSource) Run(ctx context.Context, handle Handler) error {
	for {
		m, err := s.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read kafka message: %w", err)
		}
		s.logger.Info("message received",
			zap.String("value", string(m.Value)),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
		handle(Message{
			Value:     string(m.Value),
			Key:       string(m.Key),
			Partition: m.Partition,
			Offset:    m.Offset,
			Time:      m.Time,
			Source:    config.SourceKafka,
		})
	}
}

// Close releases the reader and leaves the consumer group.
func (s *KafkaSource) Close() error {
	if err := s.reader.Close(); err != nil {
		return fmt.Errorf("close kafka reader: %w", err)
	}
	return nil
}
