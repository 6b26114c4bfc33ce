package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Log-Tools/lift-tickets-pipeline/tickets"
)

// Config represents the bridge configuration
type Config struct {
	Kafka KafkaConfig `yaml:"kafka"`

	// Stop after this long without messages; 0 streams until interrupted
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	LogLevel string `yaml:"log_level"`
}

// KafkaConfig represents Kafka connection configuration
type KafkaConfig struct {
	Brokers       string                 `yaml:"brokers"`
	Topic         string                 `yaml:"topic"`
	ConsumerGroup string                 `yaml:"consumer_group"`
	FromBeginning bool                   `yaml:"from_beginning"`
	ConsumerConf  map[string]interface{} `yaml:"consumer_config"`
}

// LoadConfig reads path when given, otherwise starts from the environment
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else {
		cfg.Kafka.Brokers = os.Getenv("REDPANDA_BROKERS")
		if cfg.Kafka.Brokers == "" {
			cfg.Kafka.Brokers = os.Getenv("KAFKA_BROKERS")
		}
		cfg.Kafka.Topic = os.Getenv("KAFKA_TOPIC")
		cfg.Kafka.ConsumerGroup = os.Getenv("KAFKA_CONSUMER_GROUP")
		cfg.LogLevel = os.Getenv("LOG_LEVEL")
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Kafka.Brokers == "" {
		cfg.Kafka.Brokers = "localhost:9092"
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = tickets.TopicLiftTickets
	}
	if cfg.Kafka.ConsumerGroup == "" {
		cfg.Kafka.ConsumerGroup = "lift-tickets-bridge"
	}
	if cfg.Kafka.ConsumerConf == nil {
		cfg.Kafka.ConsumerConf = make(map[string]interface{})
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.IdleTimeout < 0 {
		return fmt.Errorf("idle_timeout cannot be negative")
	}
	return nil
}

// ConsumerSettings returns the librdkafka settings layered over the factory defaults.
// Offsets are committed by the streamer after a clean stop, never in the background.
func (c *Config) ConsumerSettings() map[string]interface{} {
	settings := map[string]interface{}{
		"auto.offset.reset":  "latest",
		"enable.auto.commit": false,
	}
	if c.Kafka.FromBeginning {
		settings["auto.offset.reset"] = "earliest"
	}
	for k, v := range c.Kafka.ConsumerConf {
		settings[k] = v
	}
	return settings
}

// Debug reports whether per-message debug logging is enabled
func (c *Config) Debug() bool {
	return c.LogLevel == "debug"
}
