package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Log-Tools/lift-tickets-pipeline/errs"
	"github.com/Log-Tools/lift-tickets-pipeline/pipeline/generate/internal/generator"
)

var seed uint64

var rootCmd = &cobra.Command{
	Use:   "generate <count>",
	Short: "Write synthetic lift ticket purchases to stdout",
	Long: `Writes <count> lift ticket purchases as JSON, one per line, followed by a
blank line that marks the end of the stream.

Examples:
  # Pipe 1000 tickets into the publisher
  generate 1000 | publish

  # Reproducible field values
  generate 25 --seed 42`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 1 {
			return &errs.InvalidArgument{Arg: "count", Value: strings.Join(args, " "), Reason: "exactly one record count is required"}
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, err := parseCount(args[0])
		if err != nil {
			return err
		}

		g := generator.New()
		if cmd.Flags().Changed("seed") {
			g = generator.New(generator.WithSeed(seed))
		}

		n, err := generator.WriteTickets(cmd.OutOrStdout(), g.Generate(count))
		if err != nil {
			return fmt.Errorf("failed to write tickets: %w", err)
		}
		log.Printf("✅ Generated %d tickets", n)
		return nil
	},
}

func init() {
	rootCmd.Flags().Uint64Var(&seed, "seed", 0, "seed for reproducible field values")
}

func parseCount(arg string) (int, error) {
	count, err := strconv.Atoi(arg)
	if err != nil {
		return 0, &errs.InvalidArgument{Arg: "count", Value: arg, Reason: "not a number"}
	}
	if count < 0 {
		return 0, &errs.InvalidArgument{Arg: "count", Value: arg, Reason: "must not be negative"}
	}
	return count, nil
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(errs.ExitCode(err))
	}
}
