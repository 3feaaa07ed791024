package safety

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int, lookback, cooldown time.Duration) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	return New(threshold, lookback, cooldown, WithClock(clock.now)), clock
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, 10*time.Minute, 30*time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen(), "two failures must not open the breaker")

	b.RecordFailure()
	assert.True(t, b.IsOpen(), "third failure within lookback must open the breaker")
}

func TestBreakerIgnoresStaleFailures(t *testing.T) {
	b, clock := newTestBreaker(3, 10*time.Minute, 30*time.Minute)

	b.RecordFailure()
	b.RecordFailure()

	// Let both failures fall out of the lookback window.
	clock.advance(11 * time.Minute)

	b.RecordFailure()
	assert.False(t, b.IsOpen(), "stale failures must not count toward the threshold")
}

func TestBreakerSuccessClearsFailures(t *testing.T) {
	b, _ := newTestBreaker(3, 10*time.Minute, 30*time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	assert.False(t, b.IsOpen())
}

func TestBreakerLazySelfClose(t *testing.T) {
	b, clock := newTestBreaker(3, 10*time.Minute, 30*time.Minute)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	require.True(t, b.IsOpen())

	clock.advance(29 * time.Minute)
	assert.True(t, b.IsOpen(), "still within cooldown")

	clock.advance(2 * time.Minute)
	assert.False(t, b.IsOpen(), "cooldown elapsed, breaker must self-close")

	// After self-close a fresh failure starts a new window.
	b.RecordFailure()
	assert.False(t, b.IsOpen())
	b.RecordFailure()
	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreakerManualReset(t *testing.T) {
	b, _ := newTestBreaker(3, 10*time.Minute, 30*time.Minute)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	require.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
}

func TestBreakerStatus(t *testing.T) {
	b, _ := newTestBreaker(3, 10*time.Minute, 30*time.Minute)

	assert.Equal(t, "closed (0/3 recent failures)", b.Status())

	b.RecordFailure()
	assert.Equal(t, "closed (1/3 recent failures)", b.Status())

	b.RecordFailure()
	b.RecordFailure()
	assert.Contains(t, b.Status(), "open")
}

func TestBreakerDefaults(t *testing.T) {
	b := New(0, 0, 0)
	assert.Equal(t, DefaultThreshold, b.threshold)
	assert.Equal(t, DefaultLookback, b.lookback)
	assert.Equal(t, DefaultCooldown, b.cooldown)
}
