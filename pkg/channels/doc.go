// Package channels defines the channel dispatch abstraction: one Dispatcher
// per delivery mechanism (email, sms, push), each validating its own
// recipient shape and performing the actual send, plus a Registry that maps
// the channel enum to its implementation once at process start.
//
// Dispatchers do not retry and do not know about circuit breakers; the
// resilience package wraps their Send calls uniformly. Ordinary external
// service errors never surface as call errors with a usable Outcome missing:
// a Send call returns a non-nil error only when the whole batch failed for a
// transient reason and is worth retrying as a unit. Per-recipient permanent
// failures are reported inside the Outcome so sibling recipients keep their
// own result.
package channels
