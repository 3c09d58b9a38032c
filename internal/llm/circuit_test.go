package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock drives the breaker cooldown without sleeping.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg CircuitBreakerConfig) (*circuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	cb := newCircuitBreaker(cfg)
	cb.now = clock.now
	return cb, clock
}

func TestCircuitBreakerStartsClosed(t *testing.T) {
	cb, _ := newTestBreaker(DefaultCircuitBreakerConfig())

	assert.Equal(t, breakerClosed, cb.current())
	assert.NoError(t, cb.allow())
}

func TestCircuitBreakerDefaults(t *testing.T) {
	cb := newCircuitBreaker(CircuitBreakerConfig{})

	assert.Equal(t, DefaultCircuitBreakerConfig(), cb.cfg)
}

func TestCircuitBreakerTripsAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	})

	cb.failure()
	cb.failure()
	assert.Equal(t, breakerClosed, cb.current())

	cb.failure()
	assert.Equal(t, breakerOpen, cb.current())
	assert.ErrorIs(t, cb.allow(), ErrCircuitOpen)
}

func TestCircuitBreakerHalfOpenAfterCooldown(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Minute,
	})

	cb.failure()
	require.Equal(t, breakerOpen, cb.current())
	require.ErrorIs(t, cb.allow(), ErrCircuitOpen)

	clock.advance(time.Minute)
	assert.NoError(t, cb.allow())
	assert.Equal(t, breakerHalfOpen, cb.current())

	// Two probe successes close the breaker.
	cb.success()
	assert.Equal(t, breakerHalfOpen, cb.current())
	cb.success()
	assert.Equal(t, breakerClosed, cb.current())
}

func TestCircuitBreakerHalfOpenFailureRetrips(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          time.Minute,
	})

	cb.failure()
	clock.advance(time.Minute)
	require.NoError(t, cb.allow())
	require.Equal(t, breakerHalfOpen, cb.current())

	cb.failure()
	assert.Equal(t, breakerOpen, cb.current())
	assert.ErrorIs(t, cb.allow(), ErrCircuitOpen)

	// The cooldown restarts from the half-open failure, not the
	// original trip.
	clock.advance(time.Minute)
	assert.NoError(t, cb.allow())
}

func TestCircuitBreakerSuccessResetsFailureRun(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 2,
		Timeout:          time.Minute,
	})

	cb.failure()
	cb.failure()
	cb.success()

	// The run restarted, so two more failures stay under the threshold.
	cb.failure()
	cb.failure()
	assert.Equal(t, breakerClosed, cb.current())
}

func TestBreakerStateString(t *testing.T) {
	assert.Equal(t, "closed", breakerClosed.String())
	assert.Equal(t, "open", breakerOpen.String())
	assert.Equal(t, "half-open", breakerHalfOpen.String())
	assert.Equal(t, "unknown", breakerState(99).String())
}
