// Package config loads and validates viewer configuration via Viper.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	// Embedded zone database so page.timezone resolves in minimal images.
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Error policies for failed page polls.
const (
	OnErrorKeep    = "keep"
	OnErrorSurface = "surface"
)

// Broker kinds, used for both consumer sources and producer sinks.
const (
	SourceKafka  = "kafka"
	SourcePubSub = "pubsub"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server          ServerConfig          `mapstructure:"server"`
	ConsumerService ConsumerServiceConfig `mapstructure:"consumer_service"`
	Page            PageConfig            `mapstructure:"page"`
	Consumer        ConsumerConfig        `mapstructure:"consumer"`
	Producer        ProducerConfig        `mapstructure:"producer"`
	Logging         LoggingConfig         `mapstructure:"logging"`
	Telemetry       TelemetryConfig       `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ConsumerServiceConfig addresses the upstream consumer service the proxy route forwards to.
type ConsumerServiceConfig struct {
	Host    string        `mapstructure:"host"`
	Port    int           `mapstructure:"port"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// PageConfig drives the polling page component.
type PageConfig struct {
	Title              string        `mapstructure:"title"`
	LinkURL            string        `mapstructure:"link_url"`
	Placeholder        string        `mapstructure:"placeholder"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	EncryptedThreshold int           `mapstructure:"encrypted_threshold"`
	OnError            string        `mapstructure:"on_error"`
	// Timezone is the IANA zone the "Updated" timestamp is shown in.
	Timezone string `mapstructure:"timezone"`
	// BaseURL is where the page reaches the proxy route. Empty means the local server.
	BaseURL string `mapstructure:"base_url"`
}

// ConsumerConfig configures the consumer service command.
type ConsumerConfig struct {
	Port        int              `mapstructure:"port"`
	Source      string           `mapstructure:"source"`
	ReadTimeout time.Duration    `mapstructure:"read_timeout"`
	Kafka       KafkaConfig      `mapstructure:"kafka"`
	PubSub      PubSubConfig     `mapstructure:"pubsub"`
	KeyRelease  KeyReleaseConfig `mapstructure:"key_release"`
}

// KeyReleaseConfig addresses the secure key release sidecar that hands the
// consumer its message decryption key. An empty Endpoint disables decryption.
type KeyReleaseConfig struct {
	Endpoint    string        `mapstructure:"endpoint"`
	MAAEndpoint string        `mapstructure:"maa_endpoint"`
	AKVEndpoint string        `mapstructure:"akv_endpoint"`
	KID         string        `mapstructure:"kid"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// KafkaConfig holds broker coordinates for the Kafka source.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// PubSubConfig holds subscription coordinates for the Pub/Sub source.
type PubSubConfig struct {
	ProjectID      string `mapstructure:"project_id"`
	SubscriptionID string `mapstructure:"subscription_id"`
}

// ProducerConfig configures the demo producer. The Kafka sink writes to
// consumer.kafka so both commands share one topic definition.
type ProducerConfig struct {
	Sink     string        `mapstructure:"sink"`
	Interval time.Duration `mapstructure:"interval"`
	Message  string        `mapstructure:"message"`
	Batch    int           `mapstructure:"batch"`
	PubSub   PubSubTopic   `mapstructure:"pubsub"`
	// PublicKey is a PEM RSA public key; when set, or when PublicKeyFile is,
	// values are encrypted before they are published. PublicKey wins.
	PublicKey     string `mapstructure:"public_key"`
	PublicKeyFile string `mapstructure:"public_key_file"`
}

// PubSubTopic names the topic the producer publishes to.
type PubSubTopic struct {
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TelemetryConfig controls tracing.
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("VIEWER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// bindLegacyEnv keeps the unprefixed variables the deployment manifests already set.
func bindLegacyEnv(v *viper.Viper) error {
	binds := map[string][]string{
		"consumer_service.host":   {"VIEWER_CONSUMER_SERVICE_HOST", "CONSUMER_SERVICE_HOST"},
		"consumer_service.port":   {"VIEWER_CONSUMER_SERVICE_PORT", "CONSUMER_SERVICE_PORT"},
		"server.port":             {"VIEWER_SERVER_PORT", "PORT"},
		"consumer.kafka.topic":    {"VIEWER_CONSUMER_KAFKA_TOPIC", "TOPIC"},
		"consumer.kafka.brokers":  {"VIEWER_CONSUMER_KAFKA_BROKERS", "BROKERS"},
		"consumer.kafka.group_id": {"VIEWER_CONSUMER_KAFKA_GROUP_ID", "CONSUMERGROUP"},
		"producer.message":        {"VIEWER_PRODUCER_MESSAGE", "MSG"},
		"producer.public_key":     {"VIEWER_PRODUCER_PUBLIC_KEY", "PUBKEY"},

		"consumer.key_release.maa_endpoint": {"VIEWER_CONSUMER_KEY_RELEASE_MAA_ENDPOINT", "SkrClientMAAEndpoint"},
		"consumer.key_release.akv_endpoint": {"VIEWER_CONSUMER_KEY_RELEASE_AKV_ENDPOINT", "SkrClientAKVEndpoint"},
		"consumer.key_release.kid":          {"VIEWER_CONSUMER_KEY_RELEASE_KID", "SkrClientKID"},
	}
	for key, envs := range binds {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("consumer_service.timeout", 0)
	v.SetDefault("page.title", "Confidential Containers on AKS")
	v.SetDefault("page.link_url", "https://github.com/microsoft/kata-containers")
	v.SetDefault("page.placeholder", "No Data Yet")
	v.SetDefault("page.poll_interval", 5*time.Second)
	v.SetDefault("page.encrypted_threshold", 50)
	v.SetDefault("page.on_error", OnErrorKeep)
	v.SetDefault("page.timezone", "UTC")
	v.SetDefault("consumer.port", 3333)
	v.SetDefault("consumer.source", SourceKafka)
	v.SetDefault("consumer.read_timeout", 10*time.Second)
	v.SetDefault("consumer.kafka.brokers", []string{"my-cluster-kafka-bootstrap:9092"})
	v.SetDefault("consumer.kafka.topic", "my-topic")
	v.SetDefault("consumer.kafka.group_id", "strimzikafkaconsumergroupid")
	v.SetDefault("consumer.key_release.endpoint", "")
	v.SetDefault("consumer.key_release.timeout", 10*time.Second)
	v.SetDefault("producer.sink", SourceKafka)
	v.SetDefault("producer.interval", time.Second)
	v.SetDefault("producer.message", "Hello World")
	v.SetDefault("producer.batch", 2)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.service_name", "kafka-viewer")
}

// Validate enforces values every command needs.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Page.PollInterval <= 0 {
		return fmt.Errorf("page.poll_interval must be > 0")
	}
	if c.Page.EncryptedThreshold < 0 {
		return fmt.Errorf("page.encrypted_threshold must be >= 0")
	}
	switch c.Page.OnError {
	case OnErrorKeep, OnErrorSurface:
	default:
		return fmt.Errorf("page.on_error must be %q or %q, got %q", OnErrorKeep, OnErrorSurface, c.Page.OnError)
	}
	if c.ConsumerService.Timeout < 0 {
		return fmt.Errorf("consumer_service.timeout must be >= 0")
	}
	if _, err := c.Page.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves page.timezone; empty means UTC.
func (p PageConfig) Location() (*time.Location, error) {
	if p.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return nil, fmt.Errorf("page.timezone %q: %w", p.Timezone, err)
	}
	return loc, nil
}

// ValidateProxy checks the settings the serve command needs to reach the consumer service.
func (c Config) ValidateProxy() error {
	if strings.TrimSpace(c.ConsumerService.Host) == "" {
		return fmt.Errorf("consumer_service.host must be set (CONSUMER_SERVICE_HOST)")
	}
	if c.ConsumerService.Port <= 0 || c.ConsumerService.Port > 65535 {
		return fmt.Errorf("consumer_service.port must be in 1..65535 (CONSUMER_SERVICE_PORT)")
	}
	return nil
}

// ValidateConsumer checks the settings the consume command needs.
func (c Config) ValidateConsumer() error {
	if c.Consumer.Port <= 0 {
		return fmt.Errorf("consumer.port must be > 0")
	}
	if c.Consumer.ReadTimeout <= 0 {
		return fmt.Errorf("consumer.read_timeout must be > 0")
	}
	switch c.Consumer.Source {
	case SourceKafka:
		if len(c.Consumer.Kafka.Brokers) == 0 {
			return fmt.Errorf("consumer.kafka.brokers must not be empty")
		}
		if c.Consumer.Kafka.Topic == "" {
			return fmt.Errorf("consumer.kafka.topic must be set")
		}
	case SourcePubSub:
		if c.Consumer.PubSub.ProjectID == "" || c.Consumer.PubSub.SubscriptionID == "" {
			return fmt.Errorf("consumer.pubsub.project_id and consumer.pubsub.subscription_id must be set")
		}
	default:
		return fmt.Errorf("consumer.source must be %q or %q, got %q", SourceKafka, SourcePubSub, c.Consumer.Source)
	}
	if kr := c.Consumer.KeyRelease; kr.Endpoint != "" {
		u, err := url.Parse(kr.Endpoint)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("consumer.key_release.endpoint must be an http(s) URL, got %q", kr.Endpoint)
		}
		if kr.Timeout < 0 {
			return fmt.Errorf("consumer.key_release.timeout must be >= 0")
		}
	}
	return nil
}

// ValidateProducer checks the settings the produce command needs.
func (c Config) ValidateProducer() error {
	if c.Producer.Interval <= 0 {
		return fmt.Errorf("producer.interval must be > 0")
	}
	if c.Producer.Batch <= 0 {
		return fmt.Errorf("producer.batch must be > 0")
	}
	switch c.Producer.Sink {
	case SourceKafka:
		if len(c.Consumer.Kafka.Brokers) == 0 || c.Consumer.Kafka.Topic == "" {
			return fmt.Errorf("consumer.kafka.brokers and consumer.kafka.topic must be set for the kafka sink")
		}
	case SourcePubSub:
		if c.Producer.PubSub.ProjectID == "" || c.Producer.PubSub.TopicID == "" {
			return fmt.Errorf("producer.pubsub.project_id and producer.pubsub.topic_id must be set")
		}
	default:
		return fmt.Errorf("producer.sink must be %q or %q, got %q", SourceKafka, SourcePubSub, c.Producer.Sink)
	}
	return nil
}

// UpstreamURL is the consumer service root the proxy route forwards to.
func (c Config) UpstreamURL() string {
	return fmt.Sprintf("http://%s:%d/", c.ConsumerService.Host, c.ConsumerService.Port)
}
