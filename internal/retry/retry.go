package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy bounds how often and how long an operation is retried.
type Policy struct {
	// MaxAttempts is the total attempt budget, including the first call.
	MaxAttempts int

	// BaseDelay is the backoff before the second attempt. Each further
	// attempt doubles it.
	BaseDelay time.Duration

	// MaxDelay caps a single backoff interval.
	MaxDelay time.Duration

	// Jitter is the random fraction applied to each delay (0.25 means
	// the delay varies by ±25%).
	Jitter float64
}

// DefaultPolicy returns the policy the synchronizer uses: 3 attempts,
// 500ms base delay doubling per attempt, ±25% jitter.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Jitter:      0.25,
	}
}

// Do runs fn until it succeeds, fails with a non-retryable error, exhausts
// the attempt budget, or ctx is canceled. It returns the number of attempts
// made and the last error.
func (p Policy) Do(ctx context.Context, retryable func(error) bool, fn func(ctx context.Context) error) (int, error) {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		if err = ctx.Err(); err != nil {
			return attempt - 1, err
		}

		if err = fn(ctx); err == nil {
			return attempt, nil
		}
		if attempt >= maxAttempts || retryable == nil || !retryable(err) {
			return attempt, err
		}

		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
	}
}

// delay computes the backoff before attempt+1 (attempt is 1-based).
func (p Policy) delay(attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	d := float64(base) * math.Pow(2, float64(attempt-1))
	if p.Jitter > 0 {
		d *= 1 + p.Jitter*(2*rand.Float64()-1)
	}

	max := p.MaxDelay
	if max <= 0 {
		max = 10 * time.Second
	}
	if d > float64(max) {
		d = float64(max)
	}
	return time.Duration(d)
}
