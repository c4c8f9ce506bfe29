package util

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inngest/inngestsdk/pkg/logger"
	"github.com/jonboulle/clockwork"
)

var ErrMaxAttemptReached = errors.New("maximum retry attempts reached")

// Retryable is a call which may be retried.
type Retryable[T any] func(ctx context.Context) (T, error)

// RetryConf controls how a call is retried.
type RetryConf struct {
	MaxAttempts    int           `json:"max_attempts"`
	InitialBackoff time.Duration `json:"initial_backoff"`
	MaxBackoff     time.Duration `json:"max_backoff"`
	BackoffFactor  int           `json:"backoff_factor"`
	// RetryableErrors reports whether an error may be retried.  All errors
	// are retried when nil.
	RetryableErrors func(error) bool `json:"-"`
	Clock           clockwork.Clock  `json:"-"`
}

type RetryConfSetting func(rc *RetryConf)

func WithRetryConfMaxAttempts(i int) RetryConfSetting {
	return func(rc *RetryConf) {
		rc.MaxAttempts = i
	}
}

func WithRetryConfInitialBackoff(dur time.Duration) RetryConfSetting {
	return func(rc *RetryConf) {
		rc.InitialBackoff = dur
	}
}

func WithRetryConfMaxBackoff(dur time.Duration) RetryConfSetting {
	return func(rc *RetryConf) {
		rc.MaxBackoff = dur
	}
}

func WithRetryConfRetryableErrors(fn func(error) bool) RetryConfSetting {
	return func(rc *RetryConf) {
		rc.RetryableErrors = fn
	}
}

func WithRetryConfClock(c clockwork.Clock) RetryConfSetting {
	return func(rc *RetryConf) {
		rc.Clock = c
	}
}

func NewRetryConf(opts ...RetryConfSetting) RetryConf {
	conf := RetryConf{
		MaxAttempts:    3,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		BackoffFactor:  2,
	}
	for _, apply := range opts {
		apply(&conf)
	}
	return conf
}

// WithRetry calls fn until it succeeds, returns an error which can't be
// retried, or conf.MaxAttempts is reached.  The backoff between attempts
// grows by BackoffFactor up to MaxBackoff.
func WithRetry[T any](ctx context.Context, name string, fn Retryable[T], conf RetryConf) (T, error) {
	var (
		zero    T
		lastErr error
	)

	clock := conf.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if conf.MaxAttempts < 1 {
		conf.MaxAttempts = 1
	}

	l := logger.StdlibLogger(ctx).With("call", name)
	backoff := conf.InitialBackoff

	for attempt := 1; attempt <= conf.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if conf.RetryableErrors != nil && !conf.RetryableErrors(err) {
			return zero, err
		}
		if attempt == conf.MaxAttempts {
			break
		}

		l.Warn("retrying call", "error", err, "attempt", attempt, "backoff", backoff)

		select {
		case <-clock.After(backoff):
		case <-ctx.Done():
			return zero, fmt.Errorf("stopping retry due to error: %w. last error: %w", ctx.Err(), lastErr)
		}

		backoff *= time.Duration(max(conf.BackoffFactor, 1))
		if backoff > conf.MaxBackoff {
			backoff = conf.MaxBackoff
		}
	}

	return zero, fmt.Errorf("%w: %w", ErrMaxAttemptReached, lastErr)
}
