// Package safety holds the process-wide automation interlock that
// suspends scheduled publishing after a burst of failures.
package safety

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultThreshold is the number of recent failures that opens the breaker.
	DefaultThreshold = 3

	// DefaultLookback is the window within which failures are counted.
	DefaultLookback = 10 * time.Minute

	// DefaultCooldown is how long the breaker stays open before it
	// self-closes on the next read.
	DefaultCooldown = 30 * time.Minute
)

// Breaker is a failure-count/cooldown circuit breaker. State is volatile
// and intentionally reset on process restart. Once the cooldown elapses
// the breaker closes lazily on the next IsOpen call; there is no
// background timer and no half-open probe phase.
type Breaker struct {
	mu        sync.Mutex
	threshold int
	lookback  time.Duration
	cooldown  time.Duration
	failures  []time.Time
	openedAt  time.Time // zero means closed
	logger    *slog.Logger

	now func() time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithLogger sets the logger used for open/reset events.
func WithLogger(l *slog.Logger) Option {
	return func(b *Breaker) { b.logger = l }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// New creates a breaker. Zero or negative parameters fall back to defaults.
func New(threshold int, lookback, cooldown time.Duration, opts ...Option) *Breaker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	b := &Breaker{
		threshold: threshold,
		lookback:  lookback,
		cooldown:  cooldown,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RecordSuccess records a successful publish attempt and clears the
// recent failure list.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = b.failures[:0]
}

// RecordFailure records a failed publish attempt. If the number of
// failures within the lookback window reaches the threshold, the
// breaker opens.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	b.failures = append(b.failures, now)
	b.prune(now)

	if len(b.failures) >= b.threshold {
		b.openedAt = now
		b.logger.Warn("circuit breaker opened",
			"failures", len(b.failures),
			"lookback", b.lookback,
		)
	}
}

// IsOpen reports whether automated publishing is suspended. As a side
// effect it closes the breaker once the cooldown has elapsed.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isOpenLocked()
}

func (b *Breaker) isOpenLocked() bool {
	if b.openedAt.IsZero() {
		return false
	}
	if b.now().Sub(b.openedAt) > b.cooldown {
		b.resetLocked()
		return false
	}
	return true
}

// Reset manually closes the breaker and clears the failure history.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetLocked()
	b.logger.Info("circuit breaker reset")
}

func (b *Breaker) resetLocked() {
	b.failures = b.failures[:0]
	b.openedAt = time.Time{}
}

// Status returns a human-readable description of the breaker state.
func (b *Breaker) Status() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isOpenLocked() {
		remaining := b.cooldown - b.now().Sub(b.openedAt)
		return fmt.Sprintf("open (closes in %s)", remaining.Round(time.Second))
	}
	b.prune(b.now())
	return fmt.Sprintf("closed (%d/%d recent failures)", len(b.failures), b.threshold)
}

// prune drops failure timestamps older than the lookback window.
// Caller must hold the mutex.
func (b *Breaker) prune(now time.Time) {
	cutoff := now.Add(-b.lookback)
	kept := b.failures[:0]
	for _, t := range b.failures {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	b.failures = kept
}
