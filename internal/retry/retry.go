// Package retry runs an operation under an exponential backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds how often and how slowly an operation is retried. Delays
// carry no randomization; request pacing jitter belongs to the rate limiter.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
}

// DefaultPolicy allows three attempts, waiting 2s then 4s.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		Multiplier:  2,
	}
}

// Permanent marks err as not worth retrying. Do returns the wrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do calls fn until it succeeds, returns a permanent error, the context ends
// or MaxAttempts calls have been made. The attempt number starts at 1.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	attempts := max(p.MaxAttempts, 1)
	attempt := 0

	var lastErr error
	op := func() error {
		attempt++
		err := fn(ctx, attempt)
		if err != nil {
			lastErr = err
		}
		return err
	}

	err := backoff.Retry(op, p.backOff(ctx, attempts))
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		if lastErr != nil {
			return fmt.Errorf("%w (last error: %v)", ctxErr, lastErr)
		}
		return ctxErr
	}

	var perm *backoff.PermanentError
	if errors.As(lastErr, &perm) {
		return perm.Err
	}
	return fmt.Errorf("failed after %d attempts: %w", attempt, err)
}

func (p Policy) backOff(ctx context.Context, attempts int) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = p.Multiplier
	if b.Multiplier < 1 {
		b.Multiplier = 2
	}
	b.MaxInterval = p.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}
