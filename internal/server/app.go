// Package server builds the viewer and consumer applications from configuration
// and runs them until a shutdown signal arrives.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/kafka-viewer/internal/api"
	"github.com/JakeFAU/kafka-viewer/internal/clock/system"
	"github.com/JakeFAU/kafka-viewer/internal/config"
	"github.com/JakeFAU/kafka-viewer/internal/consumer"
	"github.com/JakeFAU/kafka-viewer/internal/crypto/oaep"
	"github.com/JakeFAU/kafka-viewer/internal/keyrelease"
	"github.com/JakeFAU/kafka-viewer/internal/logging"
	"github.com/JakeFAU/kafka-viewer/internal/telemetry"
	"github.com/JakeFAU/kafka-viewer/internal/upstream"
	"github.com/JakeFAU/kafka-viewer/internal/web"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg            *config.Config
	logger         *zap.Logger
	port           int
	handler        http.Handler
	page           *web.Component
	source         consumer.Source
	latest         *consumer.Latest
	tracerShutdown func(context.Context) error
}

// Option customizes Build.
type Option func(*buildOptions)

type buildOptions struct {
	logger *zap.Logger
	source consumer.Source
}

// WithLogger skips building a logger from configuration.
func WithLogger(logger *zap.Logger) Option {
	return func(o *buildOptions) {
		o.logger = logger
	}
}

// WithSource replaces the broker source the consumer reads from.
func WithSource(src consumer.Source) Option {
	return func(o *buildOptions) {
		o.source = src
	}
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Page returns the page component, or nil for the consumer application.
func (a *App) Page() *web.Component {
	return a.page
}

// Latest returns the consumer's message store, or nil for the viewer application.
func (a *App) Latest() *consumer.Latest {
	return a.latest
}

// BuildViewer wires the proxy route, the page component and the shell.
func BuildViewer(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	app, err := newApp(ctx, cfg, cfg.Server.Port, opts)
	if err != nil {
		return nil, err
	}

	client, err := upstream.NewFromConfig(*cfg, upstream.WithLogger(app.logger.Named("upstream")))
	if err != nil {
		app.shutdown()
		return nil, fmt.Errorf("upstream client init failed: %w", err)
	}
	app.logger.Info("consumer service configured", zap.String("target", client.Target()))

	baseURL := cfg.Page.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	}
	envelopes, err := web.NewEnvelopeClient(baseURL, nil)
	if err != nil {
		app.shutdown()
		return nil, fmt.Errorf("page client init failed: %w", err)
	}

	loc, err := cfg.Page.Location()
	if err != nil {
		app.shutdown()
		return nil, err
	}
	app.page = web.NewComponent(web.Config{
		Title:         cfg.Page.Title,
		LinkURL:       cfg.Page.LinkURL,
		Placeholder:   cfg.Page.Placeholder,
		Interval:      cfg.Page.PollInterval,
		Threshold:     cfg.Page.EncryptedThreshold,
		SurfaceErrors: cfg.Page.OnError == config.OnErrorSurface,
	}, envelopes, system.NewIn(loc), app.logger.Named("page"))

	shell, err := web.NewShell(app.page, app.logger.Named("shell"))
	if err != nil {
		app.shutdown()
		return nil, fmt.Errorf("shell init failed: %w", err)
	}

	apiServer := api.NewServer(client, shell, app.logger.Named("api"), api.WithReadiness(app.page.Mounted))
	app.handler = telemetry.Middleware("viewer")(apiServer.Handler())
	app.logger.Info("viewer built",
		zap.String("page_client", envelopes.URL()),
		zap.Duration("poll_interval", cfg.Page.PollInterval),
	)
	return app, nil
}

// BuildConsumer wires a broker source to the plain-text consumer endpoint.
func BuildConsumer(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if err := cfg.ValidateConsumer(); err != nil {
		return nil, err
	}
	app, err := newApp(ctx, cfg, cfg.Consumer.Port, opts)
	if err != nil {
		return nil, err
	}

	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	app.source = o.source
	if app.source == nil {
		app.source, err = newSource(ctx, cfg, app.logger.Named("consumer"))
		if err != nil {
			app.shutdown()
			return nil, err
		}
	}

	decrypting := false
	if kr := cfg.Consumer.KeyRelease; kr.Endpoint != "" {
		client := keyrelease.New(kr, keyrelease.WithLogger(app.logger.Named("keyrelease")))
		key, err := client.Release(ctx)
		if err != nil {
			app.logger.Warn("key release failed; messages are shown as received",
				zap.String("endpoint", kr.Endpoint),
				zap.Error(err),
			)
		} else {
			app.source = consumer.NewDecryptingSource(app.source, oaep.NewDecrypter(key), app.logger.Named("consumer"))
			decrypting = true
		}
	}

	app.latest = consumer.NewLatest()
	consumerServer := api.NewConsumerServer(app.latest, cfg.Consumer.ReadTimeout, app.logger.Named("api"))
	app.handler = telemetry.Middleware("consumer")(consumerServer.Handler())
	app.logger.Info("consumer built",
		zap.String("source", app.source.Name()),
		zap.Duration("read_timeout", cfg.Consumer.ReadTimeout),
		zap.Bool("decrypting", decrypting),
	)
	return app, nil
}

func newSource(ctx context.Context, cfg *config.Config, logger *zap.Logger) (consumer.Source, error) {
	switch cfg.Consumer.Source {
	case config.SourcePubSub:
		src, err := consumer.NewPubSubSource(ctx, cfg.Consumer.PubSub, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		src, err := consumer.NewKafkaSource(cfg.Consumer.Kafka, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("kafka reader initialized",
			zap.Strings("brokers", cfg.Consumer.Kafka.Brokers),
			zap.String("topic", cfg.Consumer.Kafka.Topic),
			zap.String("group_id", cfg.Consumer.Kafka.GroupID),
		)
		return src, nil
	}
}

func newApp(ctx context.Context, cfg *config.Config, port int, opts []Option) (*App, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		var err error
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return nil, fmt.Errorf("logger init failed: %w", err)
		}
		zap.ReplaceGlobals(logger)
	}

	tp, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("tracer init failed: %w", err)
	}
	logger.Info("creating application", zap.Int("port", port), zap.Bool("tracing", cfg.Telemetry.Enabled))
	return &App{
		cfg:            cfg,
		logger:         logger,
		port:           port,
		tracerShutdown: tp.Shutdown,
	}, nil
}

// Run listens on the configured port and blocks until the context is canceled
// or SIGINT/SIGTERM arrives.
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", a.port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", a.port, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the application on ln until shutdown.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	a.logger.Info("application started")
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var wg sync.WaitGroup
	var runErr error
	var errOnce sync.Once
	fail := func(err error) {
		errOnce.Do(func() { runErr = err })
		stop()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.logger.Info("http server started", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			fail(fmt.Errorf("http server: %w", err))
		}
	}()

	if a.source != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := consumer.Pump(ctx, a.source, a.latest, a.logger.Named("consumer")); err != nil {
				fail(err)
			}
		}()
	}

	if a.page != nil {
		if err := a.page.Mount(ctx); err != nil {
			a.logger.Error("page mount failed", zap.Error(err))
			fail(fmt.Errorf("mount page: %w", err))
		}
	}

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.page != nil {
		a.page.Unmount()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	wg.Wait()

	a.Close(shutdownCtx)
	return runErr
}

// shutdown closes the application outside of Serve, bounded by shutdownTimeout.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.Close(ctx)
}

// Close releases the source and flushes observability.
func (a *App) Close(ctx context.Context) {
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Warn("source close failed", zap.Error(err))
		}
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			a.logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}
	var fields []zap.Field
	if a.latest != nil {
		fields = append(fields, zap.Uint64("messages_consumed", a.latest.Count()))
	}
	a.logger.Info("shutdown complete", fields...)
	//nolint:errcheck // stderr sync fails on some platforms
	a.logger.Sync()
}
