// Package ratelimit spaces out requests to one storefront with a randomized delay.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"
)

// RateLimiter paces outgoing requests.
type RateLimiter interface {
	Wait(ctx context.Context) error
	SetDelay(min, max time.Duration)
}

// Jitter waits a uniformly random delay in [min, max) since the previous
// action. The first call does not wait.
type Jitter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

// NewJitter creates a jitter limiter. max below min is raised to min.
func NewJitter(minDelay, maxDelay time.Duration) *Jitter {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Jitter{minDelay: minDelay, maxDelay: maxDelay}
}

// Wait blocks until the delay since the previous action has passed or ctx
// is done.
func (j *Jitter) Wait(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.lastAction.IsZero() {
		elapsed := time.Since(j.lastAction)
		if delay := j.delay(); elapsed < delay {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay - elapsed):
			}
		}
	}

	j.lastAction = time.Now()
	return nil
}

// SetDelay replaces the delay window.
func (j *Jitter) SetDelay(min, max time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if max < min {
		max = min
	}
	j.minDelay = min
	j.maxDelay = max
}

func (j *Jitter) delays() (time.Duration, time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.minDelay, j.maxDelay
}

func (j *Jitter) delay() time.Duration {
	if j.minDelay == j.maxDelay {
		return j.minDelay
	}
	return j.minDelay + time.Duration(rand.Int64N(int64(j.maxDelay-j.minDelay)))
}

// Adaptive widens the jitter window after repeated denials and throttling
// and slowly narrows it back while requests succeed.
type Adaptive struct {
	*Jitter
	baseMin       time.Duration
	errorCount    int
	successCount  int
	maxErrorCount int
	backoffFactor float64
	ceiling       time.Duration
}

// NewAdaptive creates an adaptive limiter starting at [minDelay, maxDelay).
func NewAdaptive(minDelay, maxDelay time.Duration) *Adaptive {
	return &Adaptive{
		Jitter:        NewJitter(minDelay, maxDelay),
		baseMin:       minDelay,
		maxErrorCount: 2,
		backoffFactor: 1.5,
		ceiling:       60 * time.Second,
	}
}

// RecordSuccess narrows the window by 10% after every six successes, never
// below the starting minimum.
func (a *Adaptive) RecordSuccess() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.successCount++
	a.errorCount = 0

	if a.successCount > 5 {
		newMin := time.Duration(float64(a.minDelay) * 0.9)
		if newMin < a.baseMin {
			newMin = a.baseMin
		}
		a.maxDelay -= a.minDelay - newMin
		a.minDelay = newMin
		a.successCount = 0
	}
}

// RecordError widens the window once errors repeat.
func (a *Adaptive) RecordError() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.errorCount++
	a.successCount = 0

	if a.errorCount >= a.maxErrorCount {
		a.minDelay = min(time.Duration(float64(a.minDelay)*a.backoffFactor), a.ceiling)
		a.maxDelay = min(time.Duration(float64(a.maxDelay)*a.backoffFactor), 2*a.ceiling)
		a.errorCount = 0
	}
}
