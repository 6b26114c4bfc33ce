// Package kafkaclient narrows confluent-kafka-go to the calls the pipeline makes,
// so the publisher, the bridge and the topic tools can be tested against fakes.
package kafkaclient

import (
	"context"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Consumer defines the interface for Kafka consumer operations
type Consumer interface {
	Subscribe(topics []string, rebalanceCb kafka.RebalanceCb) error
	ReadMessage(timeoutMs int) (*kafka.Message, error)
	CommitMessage(message *kafka.Message) error
	Commit() error
	Close() error
}

// Producer defines the interface for Kafka producer operations
type Producer interface {
	Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error
	Events() chan kafka.Event
	Flush(timeoutMs int) int
	Close()
}

// Admin defines the interface for topic administration
type Admin interface {
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
	CreateTopics(ctx context.Context, topics []kafka.TopicSpecification, options ...kafka.CreateTopicsAdminOption) ([]kafka.TopicResult, error)
	Close()
}

// ClientFactory defines the interface for creating Kafka clients
type ClientFactory interface {
	CreateConsumer(brokers, groupID string, config map[string]interface{}) (Consumer, error)
	CreateProducer(brokers string, config map[string]interface{}) (Producer, error)
	CreateAdmin(brokers string) (Admin, error)
}
