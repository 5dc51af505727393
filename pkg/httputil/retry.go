package httputil

import (
	"context"
	"errors"
	"time"

	"github.com/cenk/backoff"
)

// RetryableError marks a failure as transient: a dropped connection, a 5xx
// from the registry host, a timeout. [Retry] only repeats these.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable marks err as transient. A nil err stays nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err carries the transient marker anywhere in
// its chain.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// jitter spreads retries from concurrent checks of the same registry.
const jitter = 0.2

// Retry calls fn at most attempts times, waiting between tries on a
// jittered exponential schedule that starts near delay and doubles. The
// first error not marked with [Retryable] ends the loop, as does ctx.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = delay
	b.RandomizationFactor = jitter
	b.Multiplier = 2
	b.MaxInterval = 64 * delay
	b.MaxElapsedTime = 0
	b.Reset()

	var err error
	for n := max(attempts, 1); n > 0; n-- {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if n == 1 {
			break
		}

		t := time.NewTimer(b.NextBackOff())
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	return err
}

// RetryWithBackoff retries fn three times starting from one second.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, 3, time.Second, fn)
}
