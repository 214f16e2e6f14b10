package consumer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/kafka-viewer/internal/metrics"
)

// Handler receives each message read by a Source. It may be called concurrently.
type Handler func(Message)

// Source is a broker reader.
type Source interface {
	// Name identifies the source in logs and metrics.
	Name() string
	// Run reads until ctx is cancelled or the source fails.
	Run(ctx context.Context, handle Handler) error
	Close() error
}

// Pump feeds every message from src into store until ctx ends or src fails.
func Pump(ctx context.Context, src Source, store *Latest, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("consumer started", zap.String("source", src.Name()))
	err := src.Run(ctx, func(msg Message) {
		if msg.Source == "" {
			msg.Source = src.Name()
		}
		if msg.Time.IsZero() {
			msg.Time = time.Now().UTC()
		}
		store.Set(msg)
		metrics.ObserveConsumedMessage(src.Name(), msg.Time)
	})
	if err != nil {
		logger.Error("consumer stopped", zap.String("source", src.Name()), zap.Error(err))
		return err
	}
	logger.Info("consumer stopped", zap.String("source", src.Name()))
	return nil
}
