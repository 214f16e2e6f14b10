// Package cmd defines the kafkaviewer CLI.
//
// Architecture overview:
//   - serve: internal/api.Server exposes GET /api/data, which makes one call to the consumer service and wraps the
//     body as {"message": ...}. A web.Component mounted for the lifetime of the process polls that route on a
//     ticker and keeps the displayed message; web.Shell renders it inside the layout at GET / and serves the global
//     stylesheet.
//   - consume: a consumer.Source (Kafka through segmentio/kafka-go, or Pub/Sub) feeds consumer.Latest, and
//     api.ConsumerServer returns the latest message as plain text at GET /.
//   - Configuration & plumbing: Viper populates config from env/files; zap provides structured logging; Prometheus
//     metrics are served at /metrics; OpenTelemetry spans cover inbound requests and outbound calls.
//
// Quick checklist:
//   - serve needs CONSUMER_SERVICE_HOST and CONSUMER_SERVICE_PORT; PORT overrides the listen port (default 3000).
//   - consume reads TOPIC, BROKERS and CONSUMERGROUP, or VIEWER_CONSUMER_SOURCE=pubsub with
//     VIEWER_CONSUMER_PUBSUB_PROJECT_ID and VIEWER_CONSUMER_PUBSUB_SUBSCRIPTION_ID.
//   - consume decrypts with a released key when VIEWER_CONSUMER_KEY_RELEASE_ENDPOINT is set (with SkrClientMAAEndpoint,
//     SkrClientAKVEndpoint and SkrClientKID); produce encrypts when PUBKEY holds a PEM public key.
//   - Every other key is available as VIEWER_<SECTION>_<KEY>, e.g. VIEWER_PAGE_POLL_INTERVAL=5s.
package cmd
