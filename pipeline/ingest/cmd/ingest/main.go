package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	sharedConfig "github.com/Log-Tools/lift-tickets-pipeline/config"
	"github.com/Log-Tools/lift-tickets-pipeline/errs"
	"github.com/Log-Tools/lift-tickets-pipeline/metrics"
	ingestConfig "github.com/Log-Tools/lift-tickets-pipeline/pipeline/ingest/internal/config"
	"github.com/Log-Tools/lift-tickets-pipeline/pipeline/ingest/internal/ingestion"
	"github.com/Log-Tools/lift-tickets-pipeline/pipeline/ingest/internal/warehouse"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "ingest [batch_size]",
	Short: "Materialize line-delimited lift tickets from stdin into the warehouse",
	Long: `Reads one serialized ticket per line from stdin until a blank line or EOF.
Every batch_size records are written to a snappy-compressed parquet file,
uploaded to the stage and followed by a trigger of the load task. The final
partial batch is materialized the same way.

The destination is selected with WAREHOUSE_KIND (snowflake, azure or duckdb).
Missing Snowflake and storage credentials are read from the shared
credentials file profile named by CREDENTIALS_PROFILE.

Examples:
  generate 1000 | ingest 100
  bridge --topic LiftTickets.Purchases | INGEST_BATCH_SIZE=500 ingest
  WAREHOUSE_KIND=duckdb ingest 50 < tickets.jsonl`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) > 1 {
			return &errs.InvalidArgument{Arg: "batch_size", Value: fmt.Sprint(args), Reason: "at most one argument is accepted"}
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

		arg := ""
		if len(args) == 1 {
			arg = args[0]
		}
		batchSize, err := resolveBatchSize(arg, cfg.BatchSize)
		if err != nil {
			return err
		}

		if err := loadCredentials(cfg); err != nil {
			return err
		}

		return run(cmd.Context(), cfg, batchSize, cmd.InOrStdin(), warehouse.New)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (default: environment)")
}

// resolveBatchSize prefers the command line argument over the configured size
func resolveBatchSize(arg string, configured int) (int, error) {
	if arg == "" {
		if configured <= 0 {
			return 0, &errs.InvalidArgument{Arg: "batch_size", Value: "", Reason: "required as argument or INGEST_BATCH_SIZE"}
		}
		return configured, nil
	}

	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, &errs.InvalidArgument{Arg: "batch_size", Value: arg, Reason: "not an integer"}
	}
	if n <= 0 {
		return 0, &errs.InvalidArgument{Arg: "batch_size", Value: arg, Reason: "must be positive"}
	}
	return n, nil
}

func loadConfig() (*ingestConfig.Config, error) {
	if configFile != "" {
		cfg, err := ingestConfig.LoadConfigFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration from file: %w", err)
		}
		return cfg, nil
	}
	cfg, err := ingestConfig.LoadConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}
	return cfg, nil
}

func loadCredentials(cfg *ingestConfig.Config) error {
	if cfg.NeedsSharedCredentials() {
		shared, err := sharedConfig.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load credentials: %w", err)
		}
		if err := cfg.ApplyCredentials(shared); err != nil {
			return err
		}
	}
	return cfg.ValidateCredentials()
}

type openWarehouse func(ctx context.Context, cfg ingestConfig.WarehouseConfig) (warehouse.Warehouse, error)

func run(ctx context.Context, cfg *ingestConfig.Config, batchSize int, in io.Reader, open openWarehouse) error {
	log.Printf("🏔️ Ingesting into %s warehouse in batches of %d", cfg.Warehouse.Kind, batchSize)

	wh, err := open(ctx, cfg.Warehouse)
	if err != nil {
		return &errs.ConnectorError{Stage: "connect", Err: err}
	}
	defer wh.Close()

	tempDir, err := os.MkdirTemp(cfg.TempDir, "ingest-")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	simple := metrics.NewSimpleCollector()
	collector := metrics.Collector(simple)
	var pusher *metrics.PushCollector
	if cfg.PushgatewayURL != "" {
		pusher, err = metrics.NewPushCollector("ingest", cfg.PushgatewayURL)
		if err != nil {
			return err
		}
		collector = metrics.Multi{simple, pusher}
	}

	materializer := ingestion.NewMaterializer(wh, wh, tempDir, collector, cfg.Debug())
	acc, err := ingestion.NewAccumulator(batchSize, cfg.LineBufferSize, materializer)
	if err != nil {
		return &errs.InvalidArgument{Arg: "batch_size", Value: strconv.Itoa(batchSize), Reason: err.Error()}
	}

	_, runErr := acc.Run(ctx, in)

	simple.LogSummary("ingest")
	if pusher != nil {
		if err := pusher.Push(); err != nil {
			log.Printf("⚠️ %v", err)
		}
	}
	return runErr
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
