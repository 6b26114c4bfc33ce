// Package publisher moves line-delimited tickets from a reader onto a Kafka topic.
package publisher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/Log-Tools/lift-tickets-pipeline/errs"
	"github.com/Log-Tools/lift-tickets-pipeline/kafkaclient"
	"github.com/Log-Tools/lift-tickets-pipeline/metrics"
	"github.com/Log-Tools/lift-tickets-pipeline/tickets"
)

// Options configures a Publisher
type Options struct {
	Topic          string
	FlushTimeoutMs int
	LineBufferSize int
	Retry          RetryPolicy
	Metrics        metrics.Collector
	Debug          bool
}

// Publisher sends each input line as one message value, without key or headers.
// A full producer queue is drained with a blocking flush and the same message is
// offered again, so backpressure never drops or reorders a line.
type Publisher struct {
	producer kafkaclient.Producer
	opts     Options

	mu          sync.Mutex
	deliveryErr error
	delivered   int
	eventsDone  chan struct{}
}

// New creates a publisher and starts draining the producer's delivery reports.
func New(producer kafkaclient.Producer, opts Options) *Publisher {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewSimpleCollector()
	}
	if opts.LineBufferSize <= 0 {
		opts.LineBufferSize = 1024 * 1024
	}

	p := &Publisher{
		producer:   producer,
		opts:       opts,
		eventsDone: make(chan struct{}),
	}

	go p.handleDeliveryEvents(producer.Events())

	return p
}

// Publish reads lines until the blank-line sentinel or EOF, publishes each of them
// and finishes with a blocking flush. It returns the number of messages accepted.
func (p *Publisher) Publish(ctx context.Context, r io.Reader) (int, error) {
	scanner := bufio.NewScanner(r)
	buffer := make([]byte, 0, 64*1024)
	scanner.Buffer(buffer, p.opts.LineBufferSize)

	accepted := 0
	for scanner.Scan() {
		if tickets.IsSentinel(scanner.Bytes()) {
			break
		}
		if err := ctx.Err(); err != nil {
			p.flush(accepted)
			return accepted, fmt.Errorf("publish interrupted after %d messages: %w", accepted, err)
		}

		// the scanner reuses its buffer
		value := make([]byte, len(scanner.Bytes()))
		copy(value, scanner.Bytes())

		if err := p.publishOne(ctx, value, accepted+1); err != nil {
			p.flush(accepted)
			return accepted, err
		}
		accepted++
	}

	if err := scanner.Err(); err != nil {
		p.flush(accepted)
		return accepted, fmt.Errorf("failed to read input after line %d: %w", accepted, err)
	}

	if err := p.flush(accepted); err != nil {
		return accepted, err
	}

	log.Printf("✅ Published %d messages to %s", accepted, p.opts.Topic)
	return accepted, nil
}

// publishOne offers a message to the producer until it is accepted or the retry policy gives up.
// index is the 1-based position of the message in the input.
func (p *Publisher) publishOne(ctx context.Context, value []byte, index int) error {
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.opts.Topic, Partition: kafka.PartitionAny},
		Value:          value,
	}

	attempts := 0
	operation := func() error {
		attempts++
		err := p.producer.Produce(msg, nil)
		if err == nil {
			return nil
		}
		if !kafkaclient.IsQueueFull(err) {
			return backoff.Permanent(&errs.ConnectorError{
				Stage: "publish",
				Err:   fmt.Errorf("message %d: %w", index, err),
			})
		}

		p.opts.Metrics.IncrementBufferFullRetries()
		remaining := p.producer.Flush(p.opts.FlushTimeoutMs)
		p.debugf("🔁 Queue full at message %d (attempt %d), %d still queued after flush", index, attempts, remaining)
		return errs.ErrBufferFull
	}

	err := backoff.Retry(operation, p.opts.Retry.backOff(ctx))
	if err == nil {
		p.opts.Metrics.IncrementRecordsProduced()
		return nil
	}

	if errors.Is(err, errs.ErrBufferFull) {
		return &errs.ConnectorError{
			Stage: "publish",
			Err:   fmt.Errorf("message %d not accepted after %d attempts: %w", index, attempts, err),
		}
	}
	var connErr *errs.ConnectorError
	if errors.As(err, &connErr) {
		return err
	}
	return &errs.ConnectorError{Stage: "publish", Err: fmt.Errorf("message %d: %w", index, err)}
}

// flush blocks until every accepted message is delivered or the flush timeout expires.
func (p *Publisher) flush(accepted int) error {
	p.debugf("Final flush for %d accepted messages...", accepted)
	remaining := p.producer.Flush(p.opts.FlushTimeoutMs)
	if remaining > 0 {
		log.Printf("⚠️ %d messages were not delivered after final flush timeout", remaining)
		return &errs.ConnectorError{
			Stage: "flush",
			Err:   fmt.Errorf("%d of %d messages not delivered within %dms", remaining, accepted, p.opts.FlushTimeoutMs),
		}
	}
	return nil
}

// Close shuts the producer down and reports the first failed delivery, if any.
func (p *Publisher) Close() error {
	p.producer.Close()
	<-p.eventsDone

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deliveryErr != nil {
		return &errs.ConnectorError{Stage: "deliver", Err: p.deliveryErr}
	}
	return nil
}

// Delivered returns the number of delivery reports without error seen so far.
func (p *Publisher) Delivered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.delivered
}

// handleDeliveryEvents handles Kafka delivery events
func (p *Publisher) handleDeliveryEvents(events chan kafka.Event) {
	defer close(p.eventsDone)

	for e := range events {
		switch ev := e.(type) {
		case *kafka.Message:
			p.mu.Lock()
			if ev.TopicPartition.Error != nil {
				log.Printf("❌ Delivery failed for message to %s: %v", p.opts.Topic, ev.TopicPartition.Error)
				if p.deliveryErr == nil {
					p.deliveryErr = ev.TopicPartition.Error
				}
			} else {
				p.delivered++
			}
			p.mu.Unlock()
		case kafka.Error:
			log.Printf("❌ Kafka producer error: %v", ev)
		}
	}
}

func (p *Publisher) debugf(format string, args ...interface{}) {
	if p.opts.Debug {
		log.Printf(format, args...)
	}
}
