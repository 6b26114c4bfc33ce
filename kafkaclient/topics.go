package kafkaclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// DefaultAdminTimeout bounds metadata and create requests when ctx has no deadline.
const DefaultAdminTimeout = 30 * time.Second

// TopicSpec describes a topic to provision.
type TopicSpec struct {
	Name              string
	Partitions        int
	ReplicationFactor int
	Config            map[string]string
}

// IsQueueFull reports whether err is the producer's local queue being full.
func IsQueueFull(err error) bool {
	var kerr kafka.Error
	return errors.As(err, &kerr) && kerr.Code() == kafka.ErrQueueFull
}

// TopicExists reports whether the broker lists the topic.
func TopicExists(ctx context.Context, admin Admin, name string) (bool, error) {
	md, err := admin.GetMetadata(nil, true, timeoutMs(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to list topics: %w", err)
	}
	tm, ok := md.Topics[name]
	if !ok {
		return false, nil
	}
	return tm.Error.Code() == kafka.ErrNoError, nil
}

// EnsureTopic creates the topic when the broker does not list it.
// The check and the create are not atomic; a concurrent creator surfaces as
// ErrTopicAlreadyExists, which counts as success.
func EnsureTopic(ctx context.Context, admin Admin, spec TopicSpec) (bool, error) {
	exists, err := TopicExists(ctx, admin, spec.Name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             spec.Name,
		NumPartitions:     spec.Partitions,
		ReplicationFactor: spec.ReplicationFactor,
		Config:            spec.Config,
	}}, kafka.SetAdminOperationTimeout(time.Duration(timeoutMs(ctx))*time.Millisecond))
	if err != nil {
		return false, fmt.Errorf("failed to create topic %s: %w", spec.Name, err)
	}

	for _, res := range results {
		switch res.Error.Code() {
		case kafka.ErrNoError:
			return true, nil
		case kafka.ErrTopicAlreadyExists:
			return false, nil
		default:
			return false, fmt.Errorf("failed to create topic %s: %w", res.Topic, res.Error)
		}
	}
	return false, fmt.Errorf("failed to create topic %s: no result returned", spec.Name)
}

func timeoutMs(ctx context.Context) int {
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			return int(remaining.Milliseconds())
		}
		return 1
	}
	return int(DefaultAdminTimeout.Milliseconds())
}
