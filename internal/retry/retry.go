// Package retry provides the single bounded-attempt policy used for all
// external generation calls.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy retries an operation up to MaxAttempts times, sleeping Delay
// between attempts. A MaxAttempts below 1 behaves as 1.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Op is one attempt of a retryable operation. The 1-based attempt number
// lets callers adjust the request on retries.
type Op func(ctx context.Context, attempt int) error

// permanentError wraps errors that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable; Do stops immediately on it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Do runs op until it succeeds, returns a permanent error, the context is
// done, or attempts are exhausted. The returned error is the last one seen,
// unwrapped from any permanent marker.
func (p Policy) Do(ctx context.Context, op Op) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		last = op(ctx, attempt)
		if last == nil {
			return nil
		}

		var perm *permanentError
		if errors.As(last, &perm) {
			return perm.err
		}

		if attempt < attempts && p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return last
}
