package httputil

import (
	"context"
	"errors"
	"time"
)

// maxDelay caps the backoff between two attempts.
const maxDelay = 30 * time.Second

// RetryableError marks a transient failure for [Retry].
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry calls fn until it succeeds, fails permanently or has been called
// attempts times. Only failures marked with [RetryableError] are retried.
// The wait starts at delay and doubles up to 30s. The returned error is the
// last failure with the RetryableError marker removed, or ctx.Err() if the
// context ends while waiting.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for n := 1; ; n++ {
		err := fn()
		if err == nil {
			return nil
		}
		var transient *RetryableError
		if !errors.As(err, &transient) {
			return err
		}
		if n >= attempts {
			return transient.Err
		}

		timer.Reset(delay)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(2*delay, maxDelay)
	}
}
