package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Log-Tools/lift-tickets-pipeline/tickets"
)

// Config represents the publisher configuration
type Config struct {
	// Kafka configuration
	Kafka KafkaConfig `yaml:"kafka"`

	// Retry policy for a saturated producer queue
	Retry RetryConfig `yaml:"retry"`

	// Pushgateway base URL; metrics are only logged when empty
	PushgatewayURL string `yaml:"pushgateway_url" env:"PUSHGATEWAY_URL"`

	// Logging configuration
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" default:"info"`

	// Line buffer for reading stdin
	LineBufferSize int `yaml:"line_buffer_size" env:"PUBLISH_LINE_BUFFER_SIZE" default:"1048576"`
}

// KafkaConfig contains Kafka connection settings
type KafkaConfig struct {
	Brokers string `yaml:"brokers" env:"REDPANDA_BROKERS,KAFKA_BROKERS" default:"localhost:9092"`

	// Destination topic, created on startup when missing
	Topic             string `yaml:"topic" env:"KAFKA_TOPIC" default:"LiftTickets.Purchases"`
	Partitions        int    `yaml:"partitions" env:"KAFKA_PARTITIONS" default:"10"`
	ReplicationFactor int    `yaml:"replication_factor" env:"KAFKA_REPLICATION_FACTOR" default:"1"`

	// Producer configuration
	Producer ProducerConfig `yaml:"producer"`
}

// ProducerConfig contains Kafka producer settings
type ProducerConfig struct {
	Acks             string `yaml:"acks" env:"KAFKA_PRODUCER_ACKS" default:"all"`
	FlushTimeoutMs   int    `yaml:"flush_timeout_ms" env:"KAFKA_PRODUCER_FLUSH_TIMEOUT_MS" default:"30000"`
	QueueMaxMessages int    `yaml:"queue_max_messages" env:"KAFKA_PRODUCER_QUEUE_MAX_MESSAGES" default:"100000"`
}

// RetryConfig bounds how long one message may keep hitting a full queue.
// MaxAttempts 0 and MaxElapsed 0 together mean retry forever.
type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts" env:"PUBLISH_RETRY_MAX_ATTEMPTS" default:"0"`
	MaxElapsed      time.Duration `yaml:"max_elapsed" env:"PUBLISH_RETRY_MAX_ELAPSED" default:"5m"`
	InitialInterval time.Duration `yaml:"initial_interval" default:"10ms"`
	MaxInterval     time.Duration `yaml:"max_interval" default:"1s"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Kafka.Brokers == "" {
		return fmt.Errorf("kafka brokers are required")
	}
	if c.Kafka.Topic == "" {
		return fmt.Errorf("topic is required")
	}
	if c.Kafka.Partitions <= 0 {
		return fmt.Errorf("partitions must be positive")
	}
	if c.Kafka.ReplicationFactor <= 0 {
		return fmt.Errorf("replication_factor must be positive")
	}
	switch c.Kafka.Producer.Acks {
	case "all", "-1", "0", "1":
	default:
		return fmt.Errorf("invalid acks %q, must be 'all', '-1', '0' or '1'", c.Kafka.Producer.Acks)
	}
	if c.Kafka.Producer.FlushTimeoutMs <= 0 {
		return fmt.Errorf("flush_timeout_ms must be positive")
	}
	if c.Kafka.Producer.QueueMaxMessages <= 0 {
		return fmt.Errorf("queue_max_messages must be positive")
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry max_attempts cannot be negative")
	}
	if c.Retry.MaxElapsed < 0 {
		return fmt.Errorf("retry max_elapsed cannot be negative")
	}
	if c.LineBufferSize <= 0 {
		return fmt.Errorf("line_buffer_size must be positive")
	}
	return nil
}

// ProducerSettings returns the librdkafka properties for the producer.
// Idempotence is only valid with acks=all; it keeps a retried send after a
// full queue from duplicating a message the broker already has.
func (c *Config) ProducerSettings() map[string]interface{} {
	acks := c.Kafka.Producer.Acks
	return map[string]interface{}{
		"acks":                         acks,
		"enable.idempotence":           acks == "all" || acks == "-1",
		"queue.buffering.max.messages": c.Kafka.Producer.QueueMaxMessages,
		"client.id":                    "publish",
	}
}

// Debug reports whether per-message debug logging is enabled.
func (c *Config) Debug() bool {
	return c.LogLevel == "debug"
}

// LoadConfigFromFile loads configuration from a YAML file
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// LoadConfigFromEnv loads configuration from environment variables with defaults
func LoadConfigFromEnv() (*Config, error) {
	cfg := Config{
		Kafka: KafkaConfig{
			Brokers:           getEnv("REDPANDA_BROKERS", getEnv("KAFKA_BROKERS", "localhost:9092")),
			Topic:             getEnv("KAFKA_TOPIC", tickets.TopicLiftTickets),
			Partitions:        parseIntEnv("KAFKA_PARTITIONS", tickets.DefaultPartitions),
			ReplicationFactor: parseIntEnv("KAFKA_REPLICATION_FACTOR", tickets.DefaultReplicationFactor),
			Producer: ProducerConfig{
				Acks:             getEnv("KAFKA_PRODUCER_ACKS", "all"),
				FlushTimeoutMs:   parseIntEnv("KAFKA_PRODUCER_FLUSH_TIMEOUT_MS", 30000),
				QueueMaxMessages: parseIntEnv("KAFKA_PRODUCER_QUEUE_MAX_MESSAGES", 100000),
			},
		},
		Retry: RetryConfig{
			MaxAttempts:     parseIntEnv("PUBLISH_RETRY_MAX_ATTEMPTS", 0),
			MaxElapsed:      parseDurationEnv("PUBLISH_RETRY_MAX_ELAPSED", 5*time.Minute),
			InitialInterval: 10 * time.Millisecond,
			MaxInterval:     time.Second,
		},
		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LineBufferSize: parseIntEnv("PUBLISH_LINE_BUFFER_SIZE", 1048576),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Helper functions for parsing environment variables
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := strconv.Atoi(value); err == nil {
		return parsed
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	return defaultValue
}

func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.LineBufferSize == 0 {
		cfg.LineBufferSize = 1048576 // 1MB
	}
	if cfg.Kafka.Brokers == "" {
		cfg.Kafka.Brokers = "localhost:9092"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = tickets.TopicLiftTickets
	}
	if cfg.Kafka.Partitions == 0 {
		cfg.Kafka.Partitions = tickets.DefaultPartitions
	}
	if cfg.Kafka.ReplicationFactor == 0 {
		cfg.Kafka.ReplicationFactor = tickets.DefaultReplicationFactor
	}
	if cfg.Kafka.Producer.Acks == "" {
		cfg.Kafka.Producer.Acks = "all"
	}
	if cfg.Kafka.Producer.FlushTimeoutMs == 0 {
		cfg.Kafka.Producer.FlushTimeoutMs = 30000
	}
	if cfg.Kafka.Producer.QueueMaxMessages == 0 {
		cfg.Kafka.Producer.QueueMaxMessages = 100000
	}
	if cfg.Retry.MaxAttempts == 0 && cfg.Retry.MaxElapsed == 0 {
		cfg.Retry.MaxElapsed = 5 * time.Minute
	}
	if cfg.Retry.InitialInterval == 0 {
		cfg.Retry.InitialInterval = 10 * time.Millisecond
	}
	if cfg.Retry.MaxInterval == 0 {
		cfg.Retry.MaxInterval = time.Second
	}
}
