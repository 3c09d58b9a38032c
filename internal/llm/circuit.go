package llm

import (
	"errors"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Generate while the breaker is cooling
// down after repeated model failures.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig tunes when the client stops sending requests to
// a failing model and when it probes for recovery.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trips
	// the breaker.
	FailureThreshold int
	// SuccessThreshold is the number of probe successes required to
	// close the breaker again.
	SuccessThreshold int
	// Timeout is the cooldown before a tripped breaker lets a probe
	// request through.
	Timeout time.Duration
}

// DefaultCircuitBreakerConfig returns the thresholds used when the
// caller does not tune the breaker.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

func (cfg CircuitBreakerConfig) withDefaults() CircuitBreakerConfig {
	def := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = def.SuccessThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return cfg
}

type breakerState uint8

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case breakerClosed:
		return "closed"
	case breakerOpen:
		return "open"
	case breakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// circuitBreaker guards the model endpoint. Closed passes everything
// through; a run of failures trips it open, rejecting requests until
// the cooldown elapses; half-open lets probes through and closes only
// after enough of them succeed. Any half-open failure re-trips it.
type circuitBreaker struct {
	mu  sync.Mutex
	cfg CircuitBreakerConfig

	state     breakerState
	failures  int
	successes int
	trippedAt time.Time

	// now is swappable so tests can drive the cooldown without sleeping.
	now func() time.Time
}

func newCircuitBreaker(cfg CircuitBreakerConfig) *circuitBreaker {
	return &circuitBreaker{
		cfg: cfg.withDefaults(),
		now: time.Now,
	}
}

// allow reports whether a request may proceed, transitioning a cooled
// open breaker to half-open as a side effect.
func (cb *circuitBreaker) allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == breakerOpen {
		if cb.now().Sub(cb.trippedAt) < cb.cfg.Timeout {
			return ErrCircuitOpen
		}
		cb.state = breakerHalfOpen
		cb.successes = 0
	}
	return nil
}

func (cb *circuitBreaker) success() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case breakerClosed:
		cb.failures = 0
	case breakerHalfOpen:
		cb.successes++
		if cb.successes >= cb.cfg.SuccessThreshold {
			cb.state = breakerClosed
			cb.failures = 0
			cb.successes = 0
		}
	}
}

func (cb *circuitBreaker) failure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case breakerClosed:
		cb.failures++
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.trip()
		}
	case breakerHalfOpen:
		cb.trip()
	}
}

// trip opens the breaker and starts the cooldown. Caller holds mu.
func (cb *circuitBreaker) trip() {
	cb.state = breakerOpen
	cb.successes = 0
	cb.trippedAt = cb.now()
}

func (cb *circuitBreaker) current() breakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
