package retry

import (
	"context"
	"time"
)

// Policy controls retry behavior for loader calls.
type Policy struct {
	MaxRetries  int           // max retry attempts; 0 means a single try
	BaseBackoff time.Duration // initial backoff duration
	MaxBackoff  time.Duration // upper bound on backoff
	JitterFn    func(time.Duration) time.Duration
}

// DefaultPolicy retries twice with a short doubling backoff.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:  2,
		BaseBackoff: 50 * time.Millisecond,
		MaxBackoff:  time.Second,
		JitterFn:    func(d time.Duration) time.Duration { return d / 2 }, //default jitter:50%
	}
}

// Do executes fn with retries, backoff, and cancellation support.
//
// fn receives the zero-based attempt number and must return nil on success.
// Any non-nil error is treated as retryable.
func Do(
	ctx context.Context,
	policy Policy,
	fn func(attempt int) error,
) error {

	var attempt int
	var backoff = policy.BaseBackoff

	for {
		err := fn(attempt)
		if err == nil {
			return nil
		}

		attempt++
		if attempt > policy.MaxRetries {
			return err
		}

		delay := backoff
		if policy.JitterFn != nil {
			delay += policy.JitterFn(backoff)
		}
		if policy.MaxBackoff > 0 && delay > policy.MaxBackoff {
			delay = policy.MaxBackoff
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
			backoff *= 2
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}
}
