package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// Backoff returns base*2^(attempt-1) with +/- jitter, where jitter is a fraction such as 0.2.
func Backoff(base time.Duration, attempt int, jitter float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base << uint(attempt-1)
	if jitter <= 0 {
		return d
	}
	delta := (rand.Float64()*2 - 1) * jitter * float64(d)
	return d + time.Duration(delta)
}

// RetryPolicy retries a call with exponential backoff.
type RetryPolicy struct {
	Attempts int
	Base     time.Duration
	Jitter   float64
}

// Do runs fn up to Attempts times. ErrOpenCircuit and context errors stop retrying at once.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := max(p.Attempts, 1)
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if errors.Is(err, ErrOpenCircuit) || ctx.Err() != nil || attempt == attempts {
			return err
		}
		timer := time.NewTimer(Backoff(p.Base, attempt, p.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
