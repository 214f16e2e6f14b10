package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
consumer_service:
  host: consumer.internal
  port: 3333
  timeout: 2s
page:
  title: Demo
  placeholder: waiting
  poll_interval: 750ms
  encrypted_threshold: 20
  on_error: surface
consumer:
  port: 4444
  source: pubsub
  read_timeout: 3s
  pubsub:
    project_id: proj
    subscription_id: sub
logging:
  development: false
  level: debug
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.ConsumerService.Host != "consumer.internal" || cfg.ConsumerService.Port != 3333 {
		t.Fatalf("expected consumer service overrides, got %+v", cfg.ConsumerService)
	}
	if cfg.ConsumerService.Timeout != 2*time.Second {
		t.Fatalf("expected 2s upstream timeout, got %v", cfg.ConsumerService.Timeout)
	}
	if cfg.Page.PollInterval != 750*time.Millisecond || cfg.Page.EncryptedThreshold != 20 {
		t.Fatalf("expected page overrides, got %+v", cfg.Page)
	}
	if cfg.Page.OnError != OnErrorSurface || cfg.Page.Placeholder != "waiting" {
		t.Fatalf("expected page policy overrides, got %+v", cfg.Page)
	}
	if cfg.Page.LinkURL == "" {
		t.Fatal("expected link url default to survive a partial page section")
	}
	if cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging overrides, got %+v", cfg.Logging)
	}
	if err := cfg.ValidateProxy(); err != nil {
		t.Fatalf("ValidateProxy() error = %v", err)
	}
	if err := cfg.ValidateConsumer(); err != nil {
		t.Fatalf("ValidateConsumer() error = %v", err)
	}
	if got := cfg.UpstreamURL(); got != "http://consumer.internal:3333/" {
		t.Fatalf("unexpected upstream url %q", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONSUMER_SERVICE_HOST", "")
	t.Setenv("CONSUMER_SERVICE_PORT", "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Page.Placeholder != "No Data Yet" {
		t.Fatalf("expected placeholder default, got %q", cfg.Page.Placeholder)
	}
	if cfg.Page.PollInterval != 5*time.Second {
		t.Fatalf("expected 5s poll interval, got %v", cfg.Page.PollInterval)
	}
	if cfg.Page.EncryptedThreshold != 50 {
		t.Fatalf("expected threshold 50, got %d", cfg.Page.EncryptedThreshold)
	}
	if cfg.Page.Timezone != "UTC" {
		t.Fatalf("expected UTC page timezone, got %q", cfg.Page.Timezone)
	}
	if cfg.Consumer.ReadTimeout != 10*time.Second {
		t.Fatalf("expected 10s read timeout, got %v", cfg.Consumer.ReadTimeout)
	}
	if cfg.ConsumerService.Timeout != 0 {
		t.Fatalf("expected no upstream timeout by default, got %v", cfg.ConsumerService.Timeout)
	}
	err = cfg.ValidateProxy()
	if err == nil || !strings.Contains(err.Error(), "CONSUMER_SERVICE_HOST") {
		t.Fatalf("expected missing host diagnostic, got %v", err)
	}
}

func TestLoadConsumerServiceEnv(t *testing.T) {
	t.Setenv("CONSUMER_SERVICE_HOST", "foo")
	t.Setenv("CONSUMER_SERVICE_PORT", "1234")
	t.Setenv("PORT", "8081")
	t.Setenv("BROKERS", "a:9092,b:9092")
	t.Setenv("MSG", "from env")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := cfg.ValidateProxy(); err != nil {
		t.Fatalf("ValidateProxy() error = %v", err)
	}
	if got := cfg.UpstreamURL(); got != "http://foo:1234/" {
		t.Fatalf("unexpected upstream url %q", got)
	}
	if cfg.Server.Port != 8081 {
		t.Fatalf("expected PORT override, got %d", cfg.Server.Port)
	}
	if len(cfg.Consumer.Kafka.Brokers) != 2 || cfg.Consumer.Kafka.Brokers[1] != "b:9092" {
		t.Fatalf("expected brokers from env, got %v", cfg.Consumer.Kafka.Brokers)
	}
	if cfg.Producer.Message != "from env" {
		t.Fatalf("expected MSG override, got %q", cfg.Producer.Message)
	}
	if err := cfg.ValidateProducer(); err != nil {
		t.Fatalf("ValidateProducer() error = %v", err)
	}
}

func TestLoadKeyMaterialEnv(t *testing.T) {
	t.Setenv("PUBKEY", "-----BEGIN PUBLIC KEY-----")
	t.Setenv("SkrClientMAAEndpoint", "sharedeus2.eus2.attest.azure.net")
	t.Setenv("SkrClientAKVEndpoint", "vault.vault.azure.net")
	t.Setenv("SkrClientKID", "kafka-encryption-demo")
	t.Setenv("VIEWER_CONSUMER_KEY_RELEASE_ENDPOINT", "http://localhost:8080/key/release")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Producer.PublicKey != "-----BEGIN PUBLIC KEY-----" {
		t.Fatalf("expected PUBKEY override, got %q", cfg.Producer.PublicKey)
	}
	want := KeyReleaseConfig{
		Endpoint:    "http://localhost:8080/key/release",
		MAAEndpoint: "sharedeus2.eus2.attest.azure.net",
		AKVEndpoint: "vault.vault.azure.net",
		KID:         "kafka-encryption-demo",
		Timeout:     10 * time.Second,
	}
	if cfg.Consumer.KeyRelease != want {
		t.Fatalf("expected key release %+v, got %+v", want, cfg.Consumer.KeyRelease)
	}
	if err := cfg.ValidateConsumer(); err != nil {
		t.Fatalf("ValidateConsumer() error = %v", err)
	}
}

func TestPageLocation(t *testing.T) {
	t.Parallel()

	loc, err := PageConfig{}.Location()
	if err != nil || loc != time.UTC {
		t.Fatalf("expected UTC for empty timezone, got %v, %v", loc, err)
	}
	loc, err = PageConfig{Timezone: "Europe/Berlin"}.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Fatalf("expected Europe/Berlin, got %v, %v", loc, err)
	}
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	t.Setenv("VIEWER_PAGE_ON_ERROR", "explode")

	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "page.on_error") {
		t.Fatalf("expected on_error validation failure, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("expected read config error, got %v", err)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:          ServerConfig{Port: 8080},
		ConsumerService: ConsumerServiceConfig{Host: "consumer", Port: 3333},
		Page:            PageConfig{PollInterval: time.Second, EncryptedThreshold: 50, OnError: OnErrorKeep},
		Consumer: ConsumerConfig{
			Port:        3333,
			Source:      SourceKafka,
			ReadTimeout: time.Second,
			Kafka:       KafkaConfig{Brokers: []string{"broker:9092"}, Topic: "t"},
		},
		Producer: ProducerConfig{Sink: SourceKafka, Interval: time.Second, Batch: 1},
	}

	tests := []struct {
		name  string
		cfg   func() Config
		check func(Config) error
		want  string
	}{
		{
			name:  "invalid port",
			cfg:   func() Config { c := base; c.Server.Port = 0; return c },
			check: Config.Validate,
			want:  "server.port",
		},
		{
			name:  "invalid poll interval",
			cfg:   func() Config { c := base; c.Page.PollInterval = 0; return c },
			check: Config.Validate,
			want:  "page.poll_interval",
		},
		{
			name:  "negative threshold",
			cfg:   func() Config { c := base; c.Page.EncryptedThreshold = -1; return c },
			check: Config.Validate,
			want:  "page.encrypted_threshold",
		},
		{
			name:  "unknown timezone",
			cfg:   func() Config { c := base; c.Page.Timezone = "Mars/Olympus_Mons"; return c },
			check: Config.Validate,
			want:  "page.timezone",
		},
		{
			name:  "missing host",
			cfg:   func() Config { c := base; c.ConsumerService.Host = " "; return c },
			check: Config.ValidateProxy,
			want:  "consumer_service.host",
		},
		{
			name:  "port out of range",
			cfg:   func() Config { c := base; c.ConsumerService.Port = 70000; return c },
			check: Config.ValidateProxy,
			want:  "consumer_service.port",
		},
		{
			name:  "unknown source",
			cfg:   func() Config { c := base; c.Consumer.Source = "nats"; return c },
			check: Config.ValidateConsumer,
			want:  "consumer.source",
		},
		{
			name: "kafka without topic",
			cfg: func() Config {
				c := base
				c.Consumer.Kafka = KafkaConfig{Brokers: []string{"broker:9092"}}
				return c
			},
			check: Config.ValidateConsumer,
			want:  "consumer.kafka.topic",
		},
		{
			name:  "pubsub without subscription",
			cfg:   func() Config { c := base; c.Consumer.Source = SourcePubSub; return c },
			check: Config.ValidateConsumer,
			want:  "consumer.pubsub",
		},
		{
			name: "key release endpoint not a url",
			cfg: func() Config {
				c := base
				c.Consumer.KeyRelease = KeyReleaseConfig{Endpoint: "localhost:8080/key/release"}
				return c
			},
			check: Config.ValidateConsumer,
			want:  "consumer.key_release.endpoint",
		},
		{
			name: "key release negative timeout",
			cfg: func() Config {
				c := base
				c.Consumer.KeyRelease = KeyReleaseConfig{Endpoint: "http://localhost:8080/key/release", Timeout: -time.Second}
				return c
			},
			check: Config.ValidateConsumer,
			want:  "consumer.key_release.timeout",
		},
		{
			name:  "producer without interval",
			cfg:   func() Config { c := base; c.Producer.Interval = 0; return c },
			check: Config.ValidateProducer,
			want:  "producer.interval",
		},
		{
			name:  "producer pubsub without topic",
			cfg:   func() Config { c := base; c.Producer.Sink = SourcePubSub; return c },
			check: Config.ValidateProducer,
			want:  "producer.pubsub",
		},
		{
			name:  "producer unknown sink",
			cfg:   func() Config { c := base; c.Producer.Sink = "file"; return c },
			check: Config.ValidateProducer,
			want:  "producer.sink",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.check(tt.cfg())
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
