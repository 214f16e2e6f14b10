package consumer

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/JakeFAU/kafka-viewer/internal/config"
)

// PubSubSource receives from a Pub/Sub subscription and acks every message.
type PubSubSource struct {
	client *pubsub.Client
	sub    *pubsub.Subscription
	logger *zap.Logger
}

// NewPubSubSource connects to the subscription named in cfg.
func NewPubSubSource(ctx context.Context, cfg config.PubSubConfig, logger *zap.Logger, opts ...option.ClientOption) (*PubSubSource, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("Pub/Sub subscriber initialized",
		zap.String("project", cfg.ProjectID),
		zap.String("subscription", cfg.SubscriptionID),
	)
	return &PubSubSource{
		client: client,
		sub:    client.Subscription(cfg.SubscriptionID),
		logger: logger,
	}, nil
}

// Name implements Source.
func (s *PubSubSource) Name() string {
	return config.SourcePubSub
}

// Run blocks in Receive until ctx is cancelled.
func (s *PubSubSource) Run(ctx context.Context, handle Handler) error {
	err := s.sub.Receive(ctx, func(_ context.Context, m *pubsub.Message) {
		s.logger.Info("message received",
			zap.String("value", string(m.Data)),
			zap.String("id", m.ID),
		)
		handle(Message{
			Value:  string(m.Data),
			Key:    m.OrderingKey,
			ID:     m.ID,
			Time:   m.PublishTime,
			Source: config.SourcePubSub,
		})
		m.Ack()
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("pubsub receive: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *PubSubSource) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
