package resilience

import (
	"sync"
	"time"
)

// CircuitState represents the current state of the circuit breaker.
type CircuitState int

const (
	// CircuitClosed allows calls to pass through.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects all calls until the cooldown elapses.
	CircuitOpen
	// CircuitHalfOpen allows exactly one trial call.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker tracks consecutive failures against one downstream
// dependency and stops calling it for a cooldown period once a failure
// threshold is reached. Safe for concurrent use; the failure counter and
// state transition are read-then-write, so every mutation happens under the
// mutex.
//
// After the cooldown the breaker admits exactly one trial call. A success
// closes the circuit and zeroes the failure counter; a failure reopens it
// and restarts the cooldown clock.
type CircuitBreaker struct {
	mu sync.Mutex

	failureThreshold int
	recoveryTimeout  time.Duration

	state           CircuitState
	failures        int
	lastFailureTime time.Time
	trialInFlight   bool
}

// NewCircuitBreaker creates a circuit breaker. Non-positive arguments fall
// back to conservative defaults.
func NewCircuitBreaker(failureThreshold int, recoveryTimeout time.Duration) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = 60 * time.Second
	}

	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		recoveryTimeout:  recoveryTimeout,
		state:            CircuitClosed,
	}
}

// Allow reports whether a call may proceed. In the open state it transitions
// to half-open once the cooldown has elapsed and admits a single trial call;
// concurrent callers during that trial are rejected until its outcome is
// recorded.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		return true

	case CircuitOpen:
		if time.Since(cb.lastFailureTime) >= cb.recoveryTimeout {
			cb.state = CircuitHalfOpen
			cb.trialInFlight = true
			return true
		}
		return false

	case CircuitHalfOpen:
		if cb.trialInFlight {
			return false
		}
		cb.trialInFlight = true
		return true

	default:
		return false
	}
}

// RecordSuccess records a successful call. A success in half-open closes the
// circuit and resets the failure counter.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitClosed:
		cb.failures = 0
	case CircuitHalfOpen:
		cb.state = CircuitClosed
		cb.failures = 0
		cb.trialInFlight = false
	}
}

// RecordFailure records a failed call. Reaching the threshold opens the
// circuit; a failure during the half-open trial reopens it immediately and
// restarts the cooldown clock.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailureTime = time.Now()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.state = CircuitOpen
		}
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.failures = cb.failureThreshold
		cb.trialInFlight = false
	}
}

// releaseTrial frees a half-open trial claimed by Allow when the guarded
// call never ran, so the next caller can attempt the trial instead.
func (cb *CircuitBreaker) releaseTrial() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen {
		cb.trialInFlight = false
	}
}

// State returns the current state, accounting for the automatic
// open-to-half-open transition a call to Allow would perform.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && time.Since(cb.lastFailureTime) >= cb.recoveryTimeout {
		return CircuitHalfOpen
	}
	return cb.state
}

// RetryAfter returns how long until the breaker would admit a trial call.
// Zero means calls are admitted now.
func (cb *CircuitBreaker) RetryAfter() time.Duration {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitOpen {
		return 0
	}
	remaining := cb.recoveryTimeout - time.Since(cb.lastFailureTime)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset forces the breaker back to closed. Intended for tests and operator
// tooling, not for the dispatch path.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.failures = 0
	cb.trialInFlight = false
	cb.lastFailureTime = time.Time{}
}

// CircuitStats provides visibility into breaker state for monitoring.
type CircuitStats struct {
	State           string
	Failures        int
	LastFailureTime time.Time
}

// Stats returns the current statistics of the circuit breaker.
func (cb *CircuitBreaker) Stats() CircuitStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitStats{
		State:           cb.state.String(),
		Failures:        cb.failures,
		LastFailureTime: cb.lastFailureTime,
	}
}
