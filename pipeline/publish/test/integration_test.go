//go:build integration

package test

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	kafkaTC "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/Log-Tools/lift-tickets-pipeline/kafkaclient"
	"github.com/Log-Tools/lift-tickets-pipeline/pipeline/publish/internal/publisher"
	"github.com/Log-Tools/lift-tickets-pipeline/tickets"
)

// PublishIntegrationSuite runs the publisher against a containerized broker
type PublishIntegrationSuite struct {
	suite.Suite
	kafkaContainer testcontainers.Container
	brokers        string
	factory        *kafkaclient.DefaultClientFactory
}

func (suite *PublishIntegrationSuite) SetupSuite() {
	ctx := context.Background()

	kafkaContainer, err := kafkaTC.RunContainer(ctx,
		testcontainers.WithImage("confluentinc/cp-kafka:7.4.0"),
		kafkaTC.WithClusterID("test-cluster"),
	)
	require.NoError(suite.T(), err)
	suite.kafkaContainer = kafkaContainer

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(suite.T(), err)
	suite.brokers = brokers[0]
	suite.factory = &kafkaclient.DefaultClientFactory{}

	suite.T().Logf("✅ Kafka started at: %s", suite.brokers)
}

func (suite *PublishIntegrationSuite) TearDownSuite() {
	if suite.kafkaContainer != nil {
		require.NoError(suite.T(), suite.kafkaContainer.Terminate(context.Background()))
	}
}

func (suite *PublishIntegrationSuite) createTestTopic() string {
	return "test-lift-tickets-" + time.Now().Format("20060102-150405.000")
}

func ticketLines(n int) *bytes.Buffer {
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		line, _ := tickets.Encode(tickets.LiftTicket{
			TransactionID:  fmt.Sprintf("txid-%03d", i),
			DeviceID:       fmt.Sprintf("0x%024x", i),
			Resort:         tickets.Resorts[i%len(tickets.Resorts)],
			PurchaseTime:   time.Now().UTC(),
			ExpirationTime: civil.Date{Year: 2023, Month: time.June, Day: 1},
			Days:           1 + i%7,
			Name:           "Integration Test",
		})
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.WriteByte('\n')
	return &buf
}

func (suite *PublishIntegrationSuite) TestEnsureTopicIsIdempotent() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := suite.factory.CreateAdmin(suite.brokers)
	suite.Require().NoError(err)
	defer admin.Close()

	spec := kafkaclient.TopicSpec{Name: suite.createTestTopic(), Partitions: 10, ReplicationFactor: 1}

	created, err := kafkaclient.EnsureTopic(ctx, admin, spec)
	suite.Require().NoError(err)
	suite.True(created)

	created, err = kafkaclient.EnsureTopic(ctx, admin, spec)
	suite.Require().NoError(err)
	suite.False(created)

	md, err := admin.GetMetadata(&spec.Name, false, 10000)
	suite.Require().NoError(err)
	suite.Len(md.Topics[spec.Name].Partitions, 10)
}

func (suite *PublishIntegrationSuite) TestPublishUnderSmallQueue() {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	topic := suite.createTestTopic()
	admin, err := suite.factory.CreateAdmin(suite.brokers)
	suite.Require().NoError(err)
	_, err = kafkaclient.EnsureTopic(ctx, admin, kafkaclient.TopicSpec{Name: topic, Partitions: 10, ReplicationFactor: 1})
	admin.Close()
	suite.Require().NoError(err)

	// a 5 message queue forces the flush-and-retry path
	producer, err := suite.factory.CreateProducer(suite.brokers, map[string]interface{}{
		"queue.buffering.max.messages": 5,
		"acks":                         "all",
	})
	suite.Require().NoError(err)

	p := publisher.New(producer, publisher.Options{
		Topic:          topic,
		FlushTimeoutMs: 10000,
		Retry:          publisher.RetryPolicy{MaxElapsed: 30 * time.Second},
	})
	n, err := p.Publish(ctx, ticketLines(100))
	suite.Require().NoError(err)
	suite.Require().NoError(p.Close())
	suite.Equal(100, n)

	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": suite.brokers,
		"group.id":          "test-consumer-" + topic,
		"auto.offset.reset": "earliest",
	})
	suite.Require().NoError(err)
	defer consumer.Close()
	suite.Require().NoError(consumer.Subscribe(topic, nil))

	seen := map[string]bool{}
	deadline := time.Now().Add(30 * time.Second)
	for len(seen) < 100 && time.Now().Before(deadline) {
		msg, err := consumer.ReadMessage(time.Second)
		if err != nil {
			continue
		}
		suite.Nil(msg.Key)
		ticket, err := tickets.DecodeLine(msg.Value, len(seen)+1)
		suite.Require().NoError(err)
		suite.False(seen[ticket.TransactionID], "duplicate %s", ticket.TransactionID)
		seen[ticket.TransactionID] = true
	}
	suite.Len(seen, 100)
}

func TestPublishIntegration(t *testing.T) {
	suite.Run(t, new(PublishIntegrationSuite))
}
