package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notify/pkg/notification"
	"github.com/notifykit/notify/pkg/resilience"
)

func testExecutor(cfg resilience.Config) *resilience.Executor {
	// Zero-delay backoff keeps the retry loop fast in tests.
	return resilience.NewExecutor(cfg, resilience.WithBackoffStrategy(resilience.FixedBackoff{}))
}

func TestExecutor_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	exec := testExecutor(resilience.Config{MaxRetries: 3, FailureThreshold: 100, RecoveryTimeout: time.Minute})

	calls := 0
	err := exec.Execute(context.Background(), notification.ChannelEmail, func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("smtp relay: %w", notification.ErrChannelUnavailable)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecutor_DoesNotRetryPermanentFailures(t *testing.T) {
	t.Parallel()

	exec := testExecutor(resilience.Config{MaxRetries: 3, FailureThreshold: 100, RecoveryTimeout: time.Minute})

	calls := 0
	permanent := fmt.Errorf("bad address: %w", notification.ErrPermanentRejection)
	err := exec.Execute(context.Background(), notification.ChannelEmail, func(context.Context) error {
		calls++
		return permanent
	})

	assert.ErrorIs(t, err, notification.ErrPermanentRejection)
	assert.Equal(t, 1, calls)
}

func TestExecutor_ExhaustionWrapsOriginalError(t *testing.T) {
	t.Parallel()

	exec := testExecutor(resilience.Config{MaxRetries: 2, FailureThreshold: 100, RecoveryTimeout: time.Minute})

	calls := 0
	err := exec.Execute(context.Background(), notification.ChannelSMS, func(context.Context) error {
		calls++
		return notification.ErrChannelUnavailable
	})

	// Initial attempt plus two retries.
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, resilience.ErrRetriesExhausted)
	// The original error kind stays reachable through the wrap.
	assert.ErrorIs(t, err, notification.ErrChannelUnavailable)
}

func TestExecutor_OpenBreakerRejectsWithoutCalling(t *testing.T) {
	t.Parallel()

	exec := testExecutor(resilience.Config{MaxRetries: 0, FailureThreshold: 2, RecoveryTimeout: time.Minute})

	fail := func(context.Context) error { return notification.ErrChannelUnavailable }
	_ = exec.Execute(context.Background(), notification.ChannelPush, fail)
	_ = exec.Execute(context.Background(), notification.ChannelPush, fail)

	calls := 0
	err := exec.Execute(context.Background(), notification.ChannelPush, func(context.Context) error {
		calls++
		return nil
	})

	assert.Equal(t, 0, calls, "open breaker must not attempt the underlying send")
	assert.True(t, resilience.IsCircuitOpen(err))
	assert.Contains(t, err.Error(), "retry after")
}

func TestExecutor_OpenBreakerRejectsBeforeBackoff(t *testing.T) {
	t.Parallel()

	// The first attempt opens the breaker; the retry must be rejected
	// immediately instead of sleeping through the hour-long backoff first.
	exec := resilience.NewExecutor(
		resilience.Config{MaxRetries: 3, FailureThreshold: 1, RecoveryTimeout: time.Minute},
		resilience.WithBackoffStrategy(resilience.FixedBackoff{Interval: time.Hour}),
	)

	calls := 0
	start := time.Now()
	err := exec.Execute(context.Background(), notification.ChannelEmail, func(context.Context) error {
		calls++
		return notification.ErrChannelUnavailable
	})

	assert.True(t, resilience.IsCircuitOpen(err))
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), time.Second, "open breaker must reject before the backoff sleep")
}

func TestExecutor_BreakersAreSharedPerChannel(t *testing.T) {
	t.Parallel()

	exec := testExecutor(resilience.Config{MaxRetries: 0, FailureThreshold: 1, RecoveryTimeout: time.Minute})

	_ = exec.Execute(context.Background(), notification.ChannelSMS, func(context.Context) error {
		return notification.ErrChannelUnavailable
	})

	// SMS breaker is open for every subsequent caller...
	err := exec.Execute(context.Background(), notification.ChannelSMS, func(context.Context) error { return nil })
	assert.True(t, resilience.IsCircuitOpen(err))

	// ...but the email channel is unaffected.
	err = exec.Execute(context.Background(), notification.ChannelEmail, func(context.Context) error { return nil })
	assert.NoError(t, err)
}

func TestExecutor_ContextCancellationStopsRetries(t *testing.T) {
	t.Parallel()

	exec := resilience.NewExecutor(
		resilience.Config{MaxRetries: 5, FailureThreshold: 100, RecoveryTimeout: time.Minute},
		resilience.WithBackoffStrategy(resilience.FixedBackoff{Interval: time.Hour}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := exec.Execute(ctx, notification.ChannelEmail, func(context.Context) error {
		return notification.ErrChannelUnavailable
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransient(t *testing.T) {
	t.Parallel()

	assert.True(t, resilience.IsTransient(notification.ErrChannelUnavailable))
	assert.True(t, resilience.IsTransient(fmt.Errorf("wrapped: %w", notification.ErrChannelUnavailable)))
	assert.True(t, resilience.IsTransient(context.DeadlineExceeded))
	assert.False(t, resilience.IsTransient(nil))
	assert.False(t, resilience.IsTransient(errors.New("invalid recipient")))
	assert.False(t, resilience.IsTransient(notification.ErrPermanentRejection))
}
