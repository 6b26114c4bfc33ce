// Package consumer turns a topic subscription into the line-delimited
// stream the ingest command reads.
package consumer

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/Log-Tools/lift-tickets-pipeline/kafkaclient"
)

// Options controls how the stream stops
type Options struct {
	Topic string

	// Stop after this long without a message; 0 streams until ctx is cancelled
	IdleTimeout time.Duration

	// ReadMessage timeout per poll
	PollTimeout time.Duration

	Debug bool
}

// Streamer writes message values one per line and terminates the stream with a blank line
type Streamer struct {
	consumer kafkaclient.Consumer
	out      *bufio.Writer
	opts     Options
	now      func() time.Time
}

// NewStreamer creates a streamer over an unsubscribed consumer
func NewStreamer(consumer kafkaclient.Consumer, out io.Writer, opts Options) *Streamer {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = time.Second
	}
	return &Streamer{
		consumer: consumer,
		out:      bufio.NewWriter(out),
		opts:     opts,
		now:      time.Now,
	}
}

// Run streams until ctx is cancelled or the idle timeout elapses and returns
// the number of records written. On a clean stop the sentinel is written and
// flushed before the consumed offsets are committed, so records whose handoff
// failed are read again by the next run of the group.
func (s *Streamer) Run(ctx context.Context) (int, error) {
	if err := s.consumer.Subscribe([]string{s.opts.Topic}, nil); err != nil {
		return 0, fmt.Errorf("failed to subscribe to %s: %w", s.opts.Topic, err)
	}

	log.Printf("🚀 Streaming %s to stdout", s.opts.Topic)

	written := 0
	lastMessage := s.now()
	for {
		if ctx.Err() != nil {
			log.Printf("🛑 Stopping bridge after %d records", written)
			break
		}

		msg, err := s.consumer.ReadMessage(int(s.opts.PollTimeout / time.Millisecond))
		if err != nil {
			var kerr kafka.Error
			if errors.As(err, &kerr) && kerr.Code() == kafka.ErrTimedOut {
				if err := s.out.Flush(); err != nil {
					return written, err
				}
				if s.opts.IdleTimeout > 0 && s.now().Sub(lastMessage) >= s.opts.IdleTimeout {
					log.Printf("⏱️ No messages for %s, stopping after %d records", s.opts.IdleTimeout, written)
					break
				}
				continue
			}
			if errors.As(err, &kerr) && kerr.IsFatal() {
				s.out.Flush()
				return written, fmt.Errorf("consumer failed: %w", err)
			}
			log.Printf("❌ Consumer error: %v", err)
			continue
		}

		lastMessage = s.now()
		value := bytes.TrimRight(msg.Value, "\r\n")
		if len(value) == 0 {
			// a blank line would end the downstream stream early
			log.Printf("⚠️ Skipping empty message at %v", msg.TopicPartition)
			continue
		}

		if _, err := s.out.Write(value); err != nil {
			return written, err
		}
		if err := s.out.WriteByte('\n'); err != nil {
			return written, err
		}
		written++

		if s.opts.Debug {
			log.Printf("%s[%d]@%v", s.opts.Topic, msg.TopicPartition.Partition, msg.TopicPartition.Offset)
		}
	}

	if err := s.out.WriteByte('\n'); err != nil {
		return written, err
	}
	if err := s.out.Flush(); err != nil {
		return written, err
	}
	if err := s.consumer.Commit(); err != nil {
		return written, fmt.Errorf("failed to commit offsets: %w", err)
	}
	return written, nil
}
