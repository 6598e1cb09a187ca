package resilience

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy calculates the delay before a retry attempt.
// Implementations must be safe for concurrent use.
type BackoffStrategy interface {
	// NextInterval returns the delay before attempt number attempt,
	// 1-indexed: attempt 1 is the first retry.
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff with optional jitter.
// The delay before attempt k is min(BaseDelay * Multiplier^(k-1), MaxDelay),
// multiplied by a uniform random factor in [0.5, 1.0] when Jitter is set.
// Shrinking rather than stretching the delay keeps the worst case bounded
// while still spreading concurrent retries apart.
type ExponentialBackoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64
	Jitter     bool
}

// NextInterval implements BackoffStrategy.
func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	base := e.BaseDelay
	if base == 0 {
		base = time.Second
	}
	max := e.MaxDelay
	if max == 0 {
		max = 60 * time.Second
	}
	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	delay := float64(base) * math.Pow(multiplier, float64(attempt-1))
	if delay > float64(max) {
		delay = float64(max)
	}

	if e.Jitter {
		// Uniform factor in [0.5, 1.0) to avoid synchronized retry storms.
		delay *= 0.5 + rand.Float64()*0.5
	}

	return time.Duration(delay)
}

// FixedBackoff implements a constant delay between retries, useful in tests
// and for endpoints that publish their own rate guidance.
type FixedBackoff struct {
	Interval time.Duration
}

// NextInterval implements BackoffStrategy.
func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}
