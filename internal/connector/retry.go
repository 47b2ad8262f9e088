package connector

import (
	"context"
	"time"
)

// Backoff retries rate-limited and transient failures with exponentially
// growing delays. The zero value makes a single attempt.
type Backoff struct {
	// Initial is the delay before the second attempt.
	Initial time.Duration
	// Max caps every delay, including server RetryAfter hints.
	Max time.Duration
	// Attempts is the total number of calls, including the first.
	Attempts int
}

// DefaultBackoff returns the retry policy used when none is configured.
func DefaultBackoff() Backoff {
	return Backoff{Initial: 250 * time.Millisecond, Max: 8 * time.Second, Attempts: 4}
}

// Do calls fn until it succeeds, fails with a non-retryable error, runs out
// of attempts, or ctx is done. The last error from fn is returned.
func (b Backoff) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := max(b.Attempts, 1)
	delay := b.Initial

	var err error
	for attempt := 1; ; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			if err != nil {
				return err
			}
			return cerr
		}
		err = fn(ctx)
		if err == nil || !IsRetryable(err) || attempt >= attempts {
			return err
		}

		wait := delay
		if hint := retryAfter(err); hint > wait {
			wait = hint
		}
		if b.Max > 0 && wait > b.Max {
			wait = b.Max
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		delay *= 2
	}
}
