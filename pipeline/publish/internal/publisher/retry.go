package publisher

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds the flush-and-retry loop for a message that meets a full queue.
// MaxAttempts counts produce calls for one message. Zero MaxAttempts and zero
// MaxElapsed together retry until the message is accepted.
type RetryPolicy struct {
	MaxAttempts     int
	MaxElapsed      time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// Unbounded reports whether the policy never gives up.
func (p RetryPolicy) Unbounded() bool {
	return p.MaxAttempts <= 0 && p.MaxElapsed <= 0
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	// zero disables the elapsed-time stop
	eb.MaxElapsedTime = p.MaxElapsed
	eb.Reset()

	var b backoff.BackOff = eb
	if p.MaxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1))
	}
	return backoff.WithContext(b, ctx)
}
