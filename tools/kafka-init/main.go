package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/Log-Tools/lift-tickets-pipeline/kafkaclient"
)

type summary struct {
	created, existing, failed int
}

func main() {
	var (
		brokerList = flag.String("brokers", "localhost:9092", "Comma-separated list of bootstrap brokers")
		configPath = flag.String("config", "configs/kafka_topics.yaml", "Path to kafka_topics.yaml")
		verbose    = flag.Bool("verbose", false, "Show detailed topic configurations")
		dryRun     = flag.Bool("dry-run", false, "Show what would be created without actually creating topics")
	)
	flag.Parse()

	specs, err := loadTopicSpecs(*configPath)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	if len(specs) == 0 {
		log.Printf("⚠️  No topics defined in %s", *configPath)
		return
	}

	if *dryRun {
		fmt.Printf("🔍 Dry run mode - would create/verify %d topic(s):\n", len(specs))
		for _, spec := range specs {
			printSpec(spec, *verbose)
		}
		return
	}

	if *verbose {
		fmt.Printf("🔗 Connecting to Kafka brokers: %s\n", *brokerList)
	}

	admin, err := (&kafkaclient.DefaultClientFactory{}).CreateAdmin(*brokerList)
	if err != nil {
		log.Fatalf("❌ Failed to create admin client: %v", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s := provision(ctx, admin, specs, *verbose)

	if s.created > 0 || s.existing > 0 {
		fmt.Printf("📊 Summary: %d created, %d existing, %d failed\n", s.created, s.existing, s.failed)
	}

	if s.failed > 0 {
		admin.Close()
		os.Exit(1)
	}
}

func provision(ctx context.Context, admin kafkaclient.Admin, specs []kafkaclient.TopicSpec, verbose bool) summary {
	var s summary
	for _, spec := range specs {
		if verbose {
			printSpec(spec, true)
		}

		created, err := kafkaclient.EnsureTopic(ctx, admin, spec)
		switch {
		case err != nil:
			log.Printf("✗ %s: %v", spec.Name, err)
			s.failed++
		case created:
			log.Printf("✓ created %s", spec.Name)
			s.created++
		default:
			log.Printf("✓ %s already exists", spec.Name)
			s.existing++
		}
	}
	return s
}

func printSpec(spec kafkaclient.TopicSpec, verbose bool) {
	fmt.Printf("   📋 %s (partitions: %d, replication: %d)\n", spec.Name, spec.Partitions, spec.ReplicationFactor)
	if !verbose {
		return
	}
	keys := make([]string, 0, len(spec.Config))
	for k := range spec.Config {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("      %s: %s\n", k, spec.Config[k])
	}
}
