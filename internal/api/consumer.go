package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/kafka-viewer/internal/consumer"
	"github.com/JakeFAU/kafka-viewer/internal/id/uuid"
)

// LatestMessage is the read side of the consumer's message store.
type LatestMessage interface {
	Wait(ctx context.Context) (consumer.Message, error)
	Ready() bool
}

// ConsumerServer exposes the latest consumed message as plain text.
type ConsumerServer struct {
	router      chi.Router
	latest      LatestMessage
	readTimeout time.Duration
	logger      *zap.Logger
}

// NewConsumerServer constructs the consumer service routes. GET / waits up to
// readTimeout for the first message.
func NewConsumerServer(latest LatestMessage, readTimeout time.Duration, logger *zap.Logger) *ConsumerServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &ConsumerServer{
		latest:      latest,
		readTimeout: readTimeout,
		logger:      logger,
	}
	r := newRouter(logger, uuid.New(), latest.Ready)
	r.Get("/", s.root)
	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *ConsumerServer) Handler() http.Handler {
	return s.router
}

func (s *ConsumerServer) root(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.readTimeout)
	defer cancel()

	text := consumer.TimeoutText
	msg, err := s.latest.Wait(ctx)
	switch {
	case err == nil:
		text = msg.Value
	case errors.Is(err, context.DeadlineExceeded):
		requestLogger(r.Context(), s.logger).Warn("no message within read timeout", zap.Duration("read_timeout", s.readTimeout))
	default:
		requestLogger(r.Context(), s.logger).Debug("wait for message aborted", zap.Error(err))
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(text)); err != nil {
		requestLogger(r.Context(), s.logger).Debug("write response failed", zap.Error(err))
	}
}
