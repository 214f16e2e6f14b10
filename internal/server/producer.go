package server

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/JakeFAU/kafka-viewer/internal/config"
	"github.com/JakeFAU/kafka-viewer/internal/crypto/oaep"
	"github.com/JakeFAU/kafka-viewer/internal/publisher"
	kafkapublisher "github.com/JakeFAU/kafka-viewer/internal/publisher/kafka"
	gcppublisher "github.com/JakeFAU/kafka-viewer/internal/publisher/pubsub"
)

// RunProducer publishes demo messages until the context is canceled or
// SIGINT/SIGTERM arrives. A nil pub selects the sink from configuration.
func RunProducer(ctx context.Context, cfg *config.Config, pub publisher.Publisher, opts ...Option) error {
	if err := cfg.ValidateProducer(); err != nil {
		return err
	}
	app, err := newApp(ctx, cfg, 0, opts)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var producerOpts []publisher.ProducerOption
	pubKey, err := oaep.LoadPublicKey(cfg.Producer.PublicKey, cfg.Producer.PublicKeyFile)
	if err != nil {
		if pub != nil {
			_ = pub.Close()
		}
		app.shutdown()
		return fmt.Errorf("producer public key: %w", err)
	}
	if pubKey != nil {
		producerOpts = append(producerOpts, publisher.WithEncrypter(oaep.NewEncrypter(pubKey)))
	}

	if pub == nil {
		pub, err = newPublisher(ctx, cfg)
		if err != nil {
			app.shutdown()
			return err
		}
	}
	app.logger.Info("producer started",
		zap.String("sink", pub.Name()),
		zap.Duration("interval", cfg.Producer.Interval),
		zap.Int("batch", cfg.Producer.Batch),
		zap.Bool("encrypted", pubKey != nil),
	)

	runErr := publisher.NewProducer(pub, cfg.Producer, app.logger.Named("producer"), producerOpts...).Run(ctx)

	if err := pub.Close(); err != nil {
		app.logger.Warn("publisher close failed", zap.Error(err))
	}
	app.shutdown()
	return runErr
}

func newPublisher(ctx context.Context, cfg *config.Config) (publisher.Publisher, error) {
	switch cfg.Producer.Sink {
	case config.SourcePubSub:
		pub, err := gcppublisher.New(ctx, cfg.Producer.PubSub)
		if err != nil {
			return nil, fmt.Errorf("pubsub publisher init failed: %w", err)
		}
		return pub, nil
	default:
		return kafkapublisher.New(cfg.Consumer.Kafka), nil
	}
}
