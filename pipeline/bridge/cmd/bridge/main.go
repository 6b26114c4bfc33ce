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
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Log-Tools/lift-tickets-pipeline/errs"
	"github.com/Log-Tools/lift-tickets-pipeline/kafkaclient"
	bridgeConfig "github.com/Log-Tools/lift-tickets-pipeline/pipeline/bridge/internal/config"
	"github.com/Log-Tools/lift-tickets-pipeline/pipeline/bridge/internal/consumer"
)

var (
	configPath    string
	kafkaBrokers  string
	topic         string
	consumerGroup string
	idleTimeout   time.Duration
	fromBeginning bool
)

var rootCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Stream lift ticket messages from Kafka to stdout",
	Long: `Consumes the lift tickets topic and writes each message value on its own
line to stdout, ending the stream with a blank line when stopped.

Examples:
  # Drain everything published so far into the warehouse
  bridge --from-beginning --idle-timeout 30s | ingest 1000

  # Follow a test topic
  bridge --brokers 127.0.0.1:19092 --topic TESTING`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 {
			return &errs.InvalidArgument{Arg: "args", Value: strings.Join(args, " "), Reason: "bridge takes no arguments"}
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg, &kafkaclient.DefaultClientFactory{}, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path (default: environment)")
	rootCmd.Flags().StringVar(&kafkaBrokers, "brokers", "", "Kafka brokers (overrides config)")
	rootCmd.Flags().StringVarP(&topic, "topic", "t", "", "topic to consume (overrides config)")
	rootCmd.Flags().StringVarP(&consumerGroup, "group", "g", "", "Kafka consumer group ID (overrides config)")
	rootCmd.Flags().DurationVar(&idleTimeout, "idle-timeout", 0, "stop after this long without messages (0 = never)")
	rootCmd.Flags().BoolVar(&fromBeginning, "from-beginning", false, "start from the earliest offset when the group has none")
}

func loadConfig(cmd *cobra.Command) (*bridgeConfig.Config, error) {
	cfg, err := bridgeConfig.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if kafkaBrokers != "" {
		cfg.Kafka.Brokers = kafkaBrokers
	}
	if topic != "" {
		cfg.Kafka.Topic = topic
	}
	if consumerGroup != "" {
		cfg.Kafka.ConsumerGroup = consumerGroup
	}
	if cmd.Flags().Changed("idle-timeout") {
		cfg.IdleTimeout = idleTimeout
	}
	if fromBeginning {
		cfg.Kafka.FromBeginning = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, &errs.InvalidArgument{Arg: "idle-timeout", Value: cfg.IdleTimeout.String(), Reason: err.Error()}
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *bridgeConfig.Config, factory kafkaclient.ClientFactory, out io.Writer) error {
	log.Printf("🔗 Connecting to Kafka brokers: %s (group %s)", cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup)

	c, err := factory.CreateConsumer(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, cfg.ConsumerSettings())
	if err != nil {
		return &errs.ConnectorError{Stage: "connect", Err: fmt.Errorf("failed to create consumer: %w", err)}
	}
	defer c.Close()

	streamer := consumer.NewStreamer(c, out, consumer.Options{
		Topic:       cfg.Kafka.Topic,
		IdleTimeout: cfg.IdleTimeout,
		Debug:       cfg.Debug(),
	})

	n, err := streamer.Run(ctx)
	if err != nil {
		return &errs.ConnectorError{Stage: "consume", Err: err}
	}
	log.Printf("✅ Bridged %d records from %s", n, cfg.Kafka.Topic)
	return nil
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
