package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Log-Tools/lift-tickets-pipeline/errs"
	"github.com/Log-Tools/lift-tickets-pipeline/kafkaclient"
	"github.com/Log-Tools/lift-tickets-pipeline/metrics"
	publishConfig "github.com/Log-Tools/lift-tickets-pipeline/pipeline/publish/internal/config"
	"github.com/Log-Tools/lift-tickets-pipeline/pipeline/publish/internal/publisher"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish line-delimited lift tickets from stdin to Kafka",
	Long: `Reads one serialized ticket per line from stdin until a blank line or EOF and
publishes each line as a message value. The topic is created with 10 partitions
and replication factor 1 when it does not exist yet.

Examples:
  generate 1000 | publish
  REDPANDA_BROKERS=127.0.0.1:19092 KAFKA_TOPIC=TESTING publish < tickets.jsonl`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 {
			return &errs.InvalidArgument{Arg: "args", Value: strings.Join(args, " "), Reason: "publish takes no arguments"}
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg, &kafkaclient.DefaultClientFactory{}, cmd.InOrStdin())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (default: environment)")
}

func loadConfig() (*publishConfig.Config, error) {
	if configFile != "" {
		cfg, err := publishConfig.LoadConfigFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration from file: %w", err)
		}
		return cfg, nil
	}
	cfg, err := publishConfig.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *publishConfig.Config, factory kafkaclient.ClientFactory, in io.Reader) error {
	log.Printf("🔗 Connecting to Kafka brokers: %s", cfg.Kafka.Brokers)

	producer, err := factory.CreateProducer(cfg.Kafka.Brokers, cfg.ProducerSettings())
	if err != nil {
		return &errs.ConnectorError{Stage: "connect", Err: fmt.Errorf("failed to create producer: %w", err)}
	}

	admin, err := factory.CreateAdmin(cfg.Kafka.Brokers)
	if err != nil {
		producer.Close()
		return &errs.ConnectorError{Stage: "connect", Err: fmt.Errorf("failed to create admin client: %w", err)}
	}
	created, err := kafkaclient.EnsureTopic(ctx, admin, kafkaclient.TopicSpec{
		Name:              cfg.Kafka.Topic,
		Partitions:        cfg.Kafka.Partitions,
		ReplicationFactor: cfg.Kafka.ReplicationFactor,
	})
	admin.Close()
	if err != nil {
		producer.Close()
		return &errs.ConnectorError{Stage: "ensure_topic", Err: err}
	}
	if created {
		log.Printf("✅ Created topic %s (partitions: %d, replication: %d)",
			cfg.Kafka.Topic, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor)
	}

	simple := metrics.NewSimpleCollector()
	collector := metrics.Collector(simple)
	var pusher *metrics.PushCollector
	if cfg.PushgatewayURL != "" {
		pusher, err = metrics.NewPushCollector("publish", cfg.PushgatewayURL)
		if err != nil {
			producer.Close()
			return err
		}
		collector = metrics.Multi{simple, pusher}
	}

	p := publisher.New(producer, publisher.Options{
		Topic:          cfg.Kafka.Topic,
		FlushTimeoutMs: cfg.Kafka.Producer.FlushTimeoutMs,
		LineBufferSize: cfg.LineBufferSize,
		Retry: publisher.RetryPolicy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			MaxElapsed:      cfg.Retry.MaxElapsed,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
		},
		Metrics: collector,
		Debug:   cfg.Debug(),
	})

	_, publishErr := p.Publish(ctx, in)
	closeErr := p.Close()
	log.Printf("📨 %d messages delivered to %s", p.Delivered(), cfg.Kafka.Topic)

	simple.LogSummary("publish")
	if pusher != nil {
		if err := pusher.Push(); err != nil {
			log.Printf("⚠️ %v", err)
		}
	}

	if publishErr != nil {
		return publishErr
	}
	return closeErr
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(errs.ExitCode(err))
	}
}
