package kafkaclient

import (
	"errors"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Defaults applied under every caller's settings. Consumers never
// auto-commit; the bridge commits once its output has been handed over.
var (
	producerDefaults = map[string]interface{}{
		"client.id":           "lift-tickets-pipeline",
		"go.delivery.reports": true,
	}
	consumerDefaults = map[string]interface{}{
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false,
	}
)

// DefaultClientFactory provides production Kafka client implementations
type DefaultClientFactory struct{}

func (f *DefaultClientFactory) CreateConsumer(brokers, groupID string, config map[string]interface{}) (Consumer, error) {
	cm := configMap(brokers, consumerDefaults, config)
	cm["group.id"] = groupID

	consumer, err := kafka.NewConsumer(&cm)
	if err != nil {
		return nil, err
	}
	return &consumerAdapter{consumer}, nil
}

// CreateProducer returns the confluent producer itself; it already satisfies Producer
func (f *DefaultClientFactory) CreateProducer(brokers string, config map[string]interface{}) (Producer, error) {
	cm := configMap(brokers, producerDefaults, config)
	producer, err := kafka.NewProducer(&cm)
	if err != nil {
		return nil, err
	}
	return producer, nil
}

func (f *DefaultClientFactory) CreateAdmin(brokers string) (Admin, error) {
	cm := configMap(brokers, nil, nil)
	admin, err := kafka.NewAdminClient(&cm)
	if err != nil {
		return nil, err
	}
	return admin, nil
}

// configMap layers overrides on top of defaults. bootstrap.servers always comes from brokers.
func configMap(brokers string, defaults, overrides map[string]interface{}) kafka.ConfigMap {
	cm := make(kafka.ConfigMap, len(defaults)+len(overrides)+1)
	for k, v := range defaults {
		cm[k] = v
	}
	for k, v := range overrides {
		cm[k] = v
	}
	cm["bootstrap.servers"] = brokers
	return cm
}

// consumerAdapter converts millisecond timeouts and drops the committed
// offsets the pipeline never inspects
type consumerAdapter struct {
	*kafka.Consumer
}

func (c *consumerAdapter) Subscribe(topics []string, rebalanceCb kafka.RebalanceCb) error {
	return c.SubscribeTopics(topics, rebalanceCb)
}

func (c *consumerAdapter) ReadMessage(timeoutMs int) (*kafka.Message, error) {
	return c.Consumer.ReadMessage(time.Duration(timeoutMs) * time.Millisecond)
}

func (c *consumerAdapter) CommitMessage(message *kafka.Message) error {
	_, err := c.Consumer.CommitMessage(message)
	return err
}

// Commit commits the offsets of every message read so far. Nothing read is not an error.
func (c *consumerAdapter) Commit() error {
	_, err := c.Consumer.Commit()
	var kerr kafka.Error
	if errors.As(err, &kerr) && kerr.Code() == kafka.ErrNoOffset {
		return nil
	}
	return err
}
