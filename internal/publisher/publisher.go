// Package publisher drives the demo producer that keeps a topic supplied with
// messages for the viewer to display.
package publisher

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/kafka-viewer/internal/config"
	"github.com/JakeFAU/kafka-viewer/internal/metrics"
)

// Publisher writes message values to a broker.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, values ...string) error
	Close() error
}

// Encrypter seals a message value before it is published.
type Encrypter interface {
	Encrypt(plaintext string) (string, error)
}

// Producer publishes a batch of numbered messages on every tick.
type Producer struct {
	pub      Publisher
	interval time.Duration
	text     string
	batch    int
	newID    func() int
	enc      Encrypter
	logger   *zap.Logger
}

// ProducerOption customizes a Producer.
type ProducerOption func(*Producer)

// WithEncrypter publishes ciphertext produced by enc instead of plaintext.
func WithEncrypter(enc Encrypter) ProducerOption {
	return func(p *Producer) {
		p.enc = enc
	}
}

// NewProducer builds a Producer from cfg.
func NewProducer(pub Publisher, cfg config.ProducerConfig, logger *zap.Logger, opts ...ProducerOption) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	batch := cfg.Batch
	if batch <= 0 {
		batch = 1
	}
	p := &Producer{
		pub:      pub,
		interval: cfg.Interval,
		text:     cfg.Message,
		batch:    batch,
		newID:    func() int { return 10000 + rand.Intn(90000) },
		logger:   logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run publishes immediately and then every interval until ctx is cancelled.
// Publish failures are logged and the loop continues.
func (p *Producer) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if err := p.PublishOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("publish failed", zap.String("sink", p.pub.Name()), zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// PublishOnce sends one batch. Every message in a batch carries the same
// value, encrypted once when an Encrypter is set.
func (p *Producer) PublishOnce(ctx context.Context) error {
	value := fmt.Sprintf("Message Id %d: %s", p.newID(), p.text)
	if p.enc != nil {
		sealed, err := p.enc.Encrypt(value)
		if err != nil {
			metrics.ObservePublished(p.pub.Name(), metrics.OutcomeError)
			return fmt.Errorf("encrypt message: %w", err)
		}
		value = sealed
	}
	values := make([]string, p.batch)
	for i := range values {
		values[i] = value
	}
	if err := p.pub.Publish(ctx, values...); err != nil {
		metrics.ObservePublished(p.pub.Name(), metrics.OutcomeError)
		return err
	}
	metrics.ObservePublished(p.pub.Name(), metrics.OutcomeSuccess)
	p.logger.Debug("batch published", zap.String("value", value), zap.Int("count", len(values)))
	return nil
}
