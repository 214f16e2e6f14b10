package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/kafka-viewer/internal/id/uuid"
	"github.com/JakeFAU/kafka-viewer/internal/message"
	"github.com/JakeFAU/kafka-viewer/internal/metrics"
	"github.com/JakeFAU/kafka-viewer/internal/web"
)

// Fetcher returns the consumer service body as text.
type Fetcher interface {
	Fetch(ctx context.Context) (string, error)
}

// IDGenerator mints request IDs.
type IDGenerator interface {
	NewID() string
}

// Frontend renders the page and its stylesheet.
type Frontend interface {
	ServePage(w http.ResponseWriter, r *http.Request)
	ServeStylesheet(w http.ResponseWriter, r *http.Request)
}

// Server wires HTTP handlers to the upstream client and the page shell.
type Server struct {
	router   chi.Router
	upstream Fetcher
	frontend Frontend
	ready    func() bool
	ids      IDGenerator
	logger   *zap.Logger
}

// Option customizes a Server.
type Option func(*Server)

// WithReadiness sets the check behind /readyz.
func WithReadiness(ready func() bool) Option {
	return func(s *Server) {
		if ready != nil {
			s.ready = ready
		}
	}
}

// WithIDGenerator replaces the request ID generator.
func WithIDGenerator(ids IDGenerator) Option {
	return func(s *Server) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// NewServer constructs a Server with middleware and routes.
func NewServer(upstream Fetcher, frontend Frontend, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		upstream: upstream,
		frontend: frontend,
		ready:    func() bool { return true },
		ids:      uuid.New(),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := newRouter(logger, s.ids, s.ready)
	r.HandleFunc(web.DataPath, s.data)
	if frontend != nil {
		r.Get("/", frontend.ServePage)
		r.Get(web.StylesheetPath, frontend.ServeStylesheet)
	}

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// newRouter installs the shared middleware and operational routes.
func newRouter(logger *zap.Logger, ids IDGenerator, ready func() bool) chi.Router {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware(ids))
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(ready))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func readyz(ready func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if !ready() {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// data forwards to the consumer service and wraps its body in the message envelope.
func (s *Server) data(w http.ResponseWriter, r *http.Request) {
	body, err := s.upstream.Fetch(r.Context())
	if err != nil {
		requestLogger(r.Context(), s.logger).Error("consumer service call failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "upstream unavailable")
		return
	}
	writeJSON(w, http.StatusOK, message.Envelope{Message: body})
}

func requestIDMiddleware(ids IDGenerator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-ID")
			if reqID == "" {
				reqID = ids.NewID()
			}
			ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
			w.Header().Set("X-Request-ID", reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestID returns the request ID stored by the request ID middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestLogger(ctx context.Context, logger *zap.Logger) *zap.Logger {
	fields := []zap.Field{zap.String("request_id", RequestID(ctx))}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	return logger.With(fields...)
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			requestLogger(r.Context(), logger).Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					requestLogger(r.Context(), logger).Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

// writeJSON writes payload without a trailing newline.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("marshal JSON failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		zap.L().Debug("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
