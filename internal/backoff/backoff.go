// Package backoff paces re-attempts of zone downloads after transient failures.
//
// The transport never retries on its own. A Backoff is owned by one
// downloader and carries its delay across links: CZDS outages are
// service-wide, so a link that follows a failed one starts with the grown delay.
package backoff

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/matthieugras/czds-client/internal/config"
)

// Backoff tracks the delay before the next attempt
type Backoff struct {
	mu       sync.Mutex
	until    time.Time
	interval time.Duration
	failures int
	config   config.BackoffConfig
}

// New creates a Backoff starting at cfg.InitialInterval
func New(cfg config.BackoffConfig) *Backoff {
	return &Backoff{
		interval: cfg.InitialInterval,
		config:   cfg,
	}
}

// Wait blocks until the pending delay has passed or ctx is done.
// It returns immediately when no failure is pending.
func (b *Backoff) Wait(ctx context.Context) error {
	remaining := b.Pending()
	if remaining <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Failed records a retryable failure and returns the delay before the next attempt.
// The delay is the current interval plus up to RandomizationFactor of jitter;
// the interval then grows by Multiplier, capped at MaxInterval.
func (b *Backoff) Failed() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	jitter := b.config.RandomizationFactor * float64(b.interval)
	delay := b.interval + time.Duration(rand.Float64()*jitter)
	b.until = time.Now().Add(delay)

	b.interval = min(time.Duration(float64(b.interval)*b.config.Multiplier), b.config.MaxInterval)
	return delay
}

// Succeeded clears any pending delay and resets the interval
func (b *Backoff) Succeeded() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.until = time.Time{}
	b.interval = b.config.InitialInterval
}

// Pending returns how long Wait would block
func (b *Backoff) Pending() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return time.Until(b.until)
}

// Interval returns the base delay the next failure will use
func (b *Backoff) Interval() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.interval
}

// Failures returns the consecutive failures since the last success
func (b *Backoff) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}
