// Package retrier repeats a call with exponential backoff and jitter.
package retrier

import (
	"context"
	"math/rand"
	"time"
)

const (
	defaultInitialInterval = 500 * time.Millisecond
	defaultMaxInterval     = 10 * time.Second
	defaultMultiplier      = 2.0
	defaultMaxRetries      = 5
	defaultJitter          = 0.1
)

// Retrier calls a function until it succeeds, the retry budget is spent,
// the error is classified as permanent or the context ends.
type Retrier struct {
	initial    time.Duration
	max        time.Duration
	multiplier float64
	retries    int
	jitter     float64
	retryIf    func(error) bool
	onRetry    func(attempt int, err error, wait time.Duration)
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithInitialInterval sets the wait before the first retry.
func WithInitialInterval(d time.Duration) Option {
	return func(r *Retrier) { r.initial = d }
}

// WithMaxInterval caps the wait between attempts.
func WithMaxInterval(d time.Duration) Option {
	return func(r *Retrier) { r.max = d }
}

// WithMultiplier sets the backoff growth factor.
func WithMultiplier(m float64) Option {
	return func(r *Retrier) { r.multiplier = m }
}

// WithMaxRetries sets how many times a failed call is repeated.
func WithMaxRetries(n int) Option {
	return func(r *Retrier) { r.retries = n }
}

// WithJitter sets the jitter factor (0.0 to 1.0).
func WithJitter(j float64) Option {
	return func(r *Retrier) { r.jitter = j }
}

// WithRetryIf limits retries to errors for which fn returns true.
// Other errors are returned immediately.
func WithRetryIf(fn func(error) bool) Option {
	return func(r *Retrier) { r.retryIf = fn }
}

// OnRetry registers fn to be called before each wait.
func OnRetry(fn func(attempt int, err error, wait time.Duration)) Option {
	return func(r *Retrier) { r.onRetry = fn }
}

// New creates a Retrier with default values and optional overrides.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		initial:    defaultInitialInterval,
		max:        defaultMaxInterval,
		multiplier: defaultMultiplier,
		retries:    defaultMaxRetries,
		jitter:     defaultJitter,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backoff returns the un-jittered wait before retry n (1-based).
func (r *Retrier) Backoff(n int) time.Duration {
	wait := float64(r.initial)
	for i := 1; i < n; i++ {
		wait *= r.multiplier
		if wait >= float64(r.max) {
			return r.max
		}
	}
	return min(time.Duration(wait), r.max)
}

func (r *Retrier) jittered(wait time.Duration) time.Duration {
	if r.jitter <= 0 {
		return wait
	}
	delta := (rand.Float64()*2 - 1) * r.jitter * float64(wait)
	return max(time.Duration(float64(wait)+delta), 0)
}

// Do runs fn and retries it on failure. The last error is returned.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		switch {
		case err == nil:
			return nil
		case attempt >= r.retries:
			return err
		case r.retryIf != nil && !r.retryIf(err):
			return err
		}

		wait := r.jittered(r.Backoff(attempt + 1))
		if r.onRetry != nil {
			r.onRetry(attempt+1, err, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
