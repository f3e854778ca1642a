package downloads

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// BackoffFunc returns the pause after the given failed attempt (1-based).
type BackoffFunc func(attempt int) time.Duration

// LinearBackoff waits base*attempt after each failure.
func LinearBackoff(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return base * time.Duration(attempt)
	}
}

// RetryPolicy bounds how often an operation is tried and how long to pause
// between tries. There is no pause after the last attempt.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     BackoffFunc
}

// DefaultRetryPolicy makes DefaultMaxRetries attempts, one second apart
// times the attempt number.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxRetries, Backoff: LinearBackoff(time.Second)}
}

// WithMaxAttempts returns a copy of p with a different attempt ceiling.
func (p RetryPolicy) WithMaxAttempts(n int) RetryPolicy {
	p.MaxAttempts = n
	return p
}

// permanent errors are returned without further attempts.
func permanent(err error) bool {
	return errors.Is(err, common.ErrInvalidNote) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// Do calls fn until it succeeds, fails permanently, the attempts run out or
// ctx is done. It returns the last error from fn.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := p.Backoff
	if backoff == nil {
		backoff = func(int) time.Duration { return 0 }
	}

	attempt := 0
	b := retry.BackoffFunc(func() (time.Duration, bool) {
		if attempt >= maxAttempts {
			return 0, true
		}
		return backoff(attempt), false
	})

	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := fn(ctx, attempt)
		if err == nil || permanent(err) {
			return err
		}
		return retry.RetryableError(err)
	})
}
