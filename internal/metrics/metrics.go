// Package metrics exposes Prometheus collectors for the viewer and consumer services.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the upstream and poll collectors.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

var (
	httpRequestsTotal               *prometheus.CounterVec
	httpRequestDurationSeconds      *prometheus.HistogramVec
	upstreamRequestsTotal           *prometheus.CounterVec
	upstreamRequestDurationSeconds  prometheus.Histogram
	pagePollsTotal                  *prometheus.CounterVec
	pageInflightPolls               prometheus.Gauge
	pageMessageLength               prometheus.Gauge
	consumerMessagesTotal           *prometheus.CounterVec
	consumerLastMessageTimestampSec prometheus.Gauge
	producerMessagesTotal           *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		upstreamRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewer_upstream_requests_total",
				Help: "Total number of calls to the consumer service, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		upstreamRequestDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "viewer_upstream_request_duration_seconds",
				Help:    "Histogram of consumer service call latencies.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
			},
		)

		pagePollsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewer_page_polls_total",
				Help: "Total number of page poll attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		pageInflightPolls = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "viewer_page_inflight_polls",
				Help: "Number of page polls currently awaiting the proxy route.",
			},
		)

		pageMessageLength = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "viewer_page_message_length",
				Help: "Length in characters of the currently displayed message.",
			},
		)

		consumerMessagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "consumer_messages_total",
				Help: "Total number of messages read from the broker, labeled by source.",
			},
			[]string{"source"},
		)

		consumerLastMessageTimestampSec = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "consumer_last_message_timestamp_seconds",
				Help: "Unix time at which the latest message was received.",
			},
		)

		producerMessagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "producer_messages_total",
				Help: "Total number of demo messages published, labeled by sink and outcome.",
			},
			[]string{"sink", "outcome"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveUpstream records one consumer service call.
func ObserveUpstream(outcome string, duration time.Duration) {
	Init()
	upstreamRequestsTotal.WithLabelValues(outcome).Inc()
	upstreamRequestDurationSeconds.Observe(duration.Seconds())
}

// ObservePoll records a completed page poll.
func ObservePoll(outcome string) {
	Init()
	pagePollsTotal.WithLabelValues(outcome).Inc()
}

// IncInflightPolls increments the in-flight poll gauge.
func IncInflightPolls() {
	Init()
	pageInflightPolls.Inc()
}

// DecInflightPolls decrements the in-flight poll gauge.
func DecInflightPolls() {
	Init()
	pageInflightPolls.Dec()
}

// SetMessageLength records the length of the displayed message.
func SetMessageLength(n int) {
	Init()
	pageMessageLength.Set(float64(n))
}

// ObserveConsumedMessage records a message read by the consumer service.
func ObserveConsumedMessage(source string, at time.Time) {
	Init()
	consumerMessagesTotal.WithLabelValues(source).Inc()
	consumerLastMessageTimestampSec.Set(float64(at.Unix()))
}

// ObservePublished records one publish attempt by the demo producer.
func ObservePublished(sink, outcome string) {
	Init()
	producerMessagesTotal.WithLabelValues(sink, outcome).Inc()
}
