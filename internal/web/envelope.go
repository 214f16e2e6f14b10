package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/JakeFAU/kafka-viewer/internal/message"
	"github.com/JakeFAU/kafka-viewer/internal/telemetry"
)

// DataPath is the proxy route the page polls.
const DataPath = "/api/data"

// EnvelopeClient fetches the proxy route over HTTP the way a browser would.
type EnvelopeClient struct {
	url        string
	httpClient *http.Client
}

// NewEnvelopeClient targets baseURL + DataPath. A nil client gets an instrumented default.
func NewEnvelopeClient(baseURL string, hc *http.Client) (*EnvelopeClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + DataPath)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid page base url %q", baseURL)
	}
	if hc == nil {
		hc = &http.Client{Transport: telemetry.Transport(nil)}
	}
	return &EnvelopeClient{url: u.String(), httpClient: hc}, nil
}

// URL returns the proxy route address.
func (e *EnvelopeClient) URL() string {
	return e.url
}

// FetchEnvelope GETs the proxy route and decodes its JSON envelope.
func (e *EnvelopeClient) FetchEnvelope(ctx context.Context) (message.Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url, nil)
	if err != nil {
		return message.Envelope{}, fmt.Errorf("build proxy request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return message.Envelope{}, fmt.Errorf("call proxy route: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode != http.StatusOK {
		return message.Envelope{}, fmt.Errorf("proxy route returned status %d", resp.StatusCode)
	}
	var env message.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return message.Envelope{}, fmt.Errorf("decode proxy envelope: %w", err)
	}
	return env, nil
}
