package resilience

import (
	"context"
	"errors"
	"net"

	"github.com/notifykit/notify/pkg/notification"
)

var (
	// ErrCircuitOpen is returned when the breaker rejects a call without
	// attempting the underlying send. The wrapping error carries a
	// retry-after hint.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrRetriesExhausted wraps the final attempt's error once the retry
	// budget is spent.
	ErrRetriesExhausted = errors.New("retry attempts exhausted")
)

// IsCircuitOpen checks if an error indicates the circuit breaker rejected
// the call.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, ErrCircuitOpen)
}

// IsTransient classifies an error as worth retrying: the dedicated
// channel-unavailable kind, deadline expiry, and network timeouts or
// connection failures. Everything else is treated as permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, notification.ErrChannelUnavailable) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
