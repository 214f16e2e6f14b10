// Package upstream calls the consumer service that holds the latest broker message.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/kafka-viewer/internal/config"
	"github.com/JakeFAU/kafka-viewer/internal/metrics"
	"github.com/JakeFAU/kafka-viewer/internal/telemetry"
)

// ErrNoTarget is returned when the consumer service address is missing or malformed.
var ErrNoTarget = errors.New("consumer service target not configured")

// Client issues one plain GET against the consumer service root per Fetch.
type Client struct {
	target     string
	httpClient *http.Client
	logger     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the instrumented default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for non-fatal upstream diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a Client for target, which must be an absolute http(s) URL.
// A zero timeout leaves outbound calls bounded only by the caller's context.
func New(target string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(target)
	if err != nil || u.Hostname() == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrNoTarget, target)
	}
	c := &Client{
		target: u.String(),
		httpClient: &http.Client{
			Transport: telemetry.Transport(nil),
			Timeout:   timeout,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig builds a Client for http://<host>:<port>/.
func NewFromConfig(cfg config.Config, opts ...Option) (*Client, error) {
	if err := cfg.ValidateProxy(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoTarget, err)
	}
	return New(cfg.UpstreamURL(), cfg.ConsumerService.Timeout, opts...)
}

// Target returns the URL every Fetch calls.
func (c *Client) Target() string {
	return c.target
}

// Fetch returns the consumer service response body as text. The body is returned
// whatever the status code; non-2xx responses are only logged.
func (c *Client) Fetch(ctx context.Context) (string, error) {
	start := time.Now()
	body, err := c.fetch(ctx)
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.ObserveUpstream(outcome, time.Since(start))
	return body, err
}

func (c *Client) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.target, nil)
	if err != nil {
		return "", fmt.Errorf("build upstream request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call consumer service: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close upstream body failed", zap.Error(cerr))
		}
	}()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read consumer service body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("consumer service returned non-2xx status",
			zap.Int("status", resp.StatusCode),
			zap.String("target", c.target),
		)
	}
	return string(data), nil
}
