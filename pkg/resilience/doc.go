// Package resilience applies a uniform failure policy to outbound channel
// dispatch calls: retry with exponential backoff on transient failures, and a
// per-channel circuit breaker that rejects calls after repeated failures
// until a cooldown elapses.
//
// The Executor is the single entry point. It owns one CircuitBreaker per
// channel for the lifetime of the process; breaker state is shared across
// every notification being processed, which is what makes it useful as a
// protection mechanism.
//
//	exec := resilience.NewExecutor(resilience.Config{
//		MaxRetries:       3,
//		BaseDelay:        time.Second,
//		MaxDelay:         30 * time.Second,
//		Multiplier:       2,
//		Jitter:           true,
//		FailureThreshold: 5,
//		RecoveryTimeout:  time.Minute,
//	})
//
//	err := exec.Execute(ctx, notification.ChannelEmail, func(ctx context.Context) error {
//		return dispatcher.Send(ctx, subject, content, recipients)
//	})
//
// Only transient failures are retried: notification.ErrChannelUnavailable,
// network timeouts and connection errors. Permanent rejections and
// validation failures surface immediately.
package resilience
