//go:build integration

package test

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Log-Tools/lift-tickets-pipeline/kafkaclient"
	"github.com/Log-Tools/lift-tickets-pipeline/metrics"
	"github.com/Log-Tools/lift-tickets-pipeline/pipeline/ingest/internal/ingestion"
	"github.com/Log-Tools/lift-tickets-pipeline/pipeline/ingest/internal/warehouse"
	"github.com/Log-Tools/lift-tickets-pipeline/tickets"
)

// Integration tests require a running Kafka instance at KAFKA_BROKERS_TEST

func TestKafkaToDuckDB(t *testing.T) {
	if !isKafkaAvailable() {
		t.Skip("Kafka not available for integration tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	brokers := getKafkaBrokers()
	topic := fmt.Sprintf("test-ingest-integration-%d", time.Now().UnixNano())
	factory := &kafkaclient.DefaultClientFactory{}

	admin, err := factory.CreateAdmin(brokers)
	require.NoError(t, err)
	_, err = kafkaclient.EnsureTopic(ctx, admin, kafkaclient.TopicSpec{Name: topic, Partitions: 3, ReplicationFactor: 1})
	admin.Close()
	require.NoError(t, err)

	const total = 23
	producer, err := factory.CreateProducer(brokers, map[string]interface{}{"acks": "all"})
	require.NoError(t, err)
	for i := 0; i < total; i++ {
		value, err := tickets.Encode(testTicket(i))
		require.NoError(t, err)
		require.NoError(t, producer.Produce(&kafka.Message{
			TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
			Value:          value,
		}, nil))
	}
	require.Zero(t, producer.Flush(10000))
	producer.Close()

	consumer, err := factory.CreateConsumer(brokers, "test-ingest-integration-group", map[string]interface{}{
		"enable.auto.commit": false,
	})
	require.NoError(t, err)
	defer consumer.Close()
	require.NoError(t, consumer.Subscribe([]string{topic}, nil))

	var stream bytes.Buffer
	for received := 0; received < total; {
		msg, err := consumer.ReadMessage(1000)
		if err != nil {
			require.NoError(t, ctx.Err(), "timed out after %d messages", received)
			continue
		}
		stream.Write(msg.Value)
		stream.WriteByte('\n')
		received++
	}
	stream.WriteByte('\n')

	dir := t.TempDir()
	wh, err := warehouse.OpenDuckDB(ctx, filepath.Join(dir, "wh.duckdb"), filepath.Join(dir, "stage"), "LIFT_TICKETS")
	require.NoError(t, err)
	defer wh.Close()

	collector := metrics.NewSimpleCollector()
	tempDir := filepath.Join(dir, "tmp")
	require.NoError(t, os.Mkdir(tempDir, 0o755))

	acc, err := ingestion.NewAccumulator(10, 1<<20, ingestion.NewMaterializer(wh, wh, tempDir, collector, true))
	require.NoError(t, err)

	result, err := acc.Run(ctx, &stream)
	require.NoError(t, err)
	assert.Equal(t, ingestion.Result{Records: total, Batches: 3}, result)

	rows, err := wh.RowCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(total), rows)

	snap := collector.Snapshot()
	assert.Equal(t, int64(3), snap.BatchesMaterialized)
	assert.Equal(t, int64(3), snap.TaskTriggers)

	leftovers, err := os.ReadDir(tempDir)
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func testTicket(i int) tickets.LiftTicket {
	return tickets.LiftTicket{
		TransactionID:  fmt.Sprintf("00000000-0000-4000-8000-%012d", i),
		DeviceID:       "0x0123456789abcdef01234567",
		Resort:         "Vail",
		PurchaseTime:   time.Date(2023, 1, 15, 9, 30, 0, i*1000, time.UTC),
		ExpirationTime: civil.Date{Year: 2023, Month: time.June, Day: 1},
		Days:           1 + i%7,
		Name:           "Jane Doe",
		Email:          tickets.Some("jane@example.com"),
	}
}

func isKafkaAvailable() bool {
	brokers := getKafkaBrokers()
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return false
	}
	defer producer.Close()

	_, err = producer.GetMetadata(nil, false, 5000)
	return err == nil
}

func getKafkaBrokers() string {
	brokers := os.Getenv("KAFKA_BROKERS_TEST")
	if brokers == "" {
		brokers = "localhost:9092"
	}
	return brokers
}
