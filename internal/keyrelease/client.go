// Package keyrelease asks the secure key release sidecar for the private key
// that decrypts broker messages. The sidecar only releases the key once the
// attestation service vouches for the container it runs in.
package keyrelease

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/kafka-viewer/internal/config"
	"github.com/JakeFAU/kafka-viewer/internal/crypto/oaep"
	"github.com/JakeFAU/kafka-viewer/internal/telemetry"
)

// maxBodyBytes caps how much of a release response is read.
const maxBodyBytes = 1 << 27

// ErrEmptyKey is returned when the sidecar answers without a key.
var ErrEmptyKey = errors.New("key release response carried no key")

type releaseRequest struct {
	MAAEndpoint string `json:"maa_endpoint"`
	AKVEndpoint string `json:"akv_endpoint"`
	KID         string `json:"kid"`
}

type releaseResponse struct {
	Key string `json:"key"`
}

// Client posts key release requests to one sidecar endpoint.
type Client struct {
	cfg        config.KeyReleaseConfig
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

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New builds a Client for cfg.Endpoint.
func New(cfg config.KeyReleaseConfig, opts ...Option) *Client {
	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Transport: telemetry.Transport(nil),
			Timeout:   cfg.Timeout,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Release requests the key named by the configured KID and returns it as an
// RSA private key. Any 2xx status up to 207 counts as success.
func (c *Client) Release(ctx context.Context) (*rsa.PrivateKey, error) {
	start := time.Now()
	body, err := json.Marshal(releaseRequest{
		MAAEndpoint: c.cfg.MAAEndpoint,
		AKVEndpoint: c.cfg.AKVEndpoint,
		KID:         c.cfg.KID,
	})
	if err != nil {
		return nil, fmt.Errorf("encode key release request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build key release request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call key release endpoint: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Debug("close key release body failed", zap.Error(cerr))
		}
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read key release response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode > http.StatusMultiStatus {
		return nil, fmt.Errorf("key release returned status %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}

	var out releaseResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode key release response: %w", err)
	}
	if out.Key == "" {
		return nil, ErrEmptyKey
	}
	key, err := oaep.PrivateKeyFromJWK([]byte(out.Key))
	if err != nil {
		return nil, err
	}
	c.logger.Info("decryption key released",
		zap.String("kid", c.cfg.KID),
		zap.Int("bits", key.N.BitLen()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return key, nil
}
