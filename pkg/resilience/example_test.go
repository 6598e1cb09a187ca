package resilience_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/notifykit/notify/pkg/notification"
	"github.com/notifykit/notify/pkg/resilience"
)

// Example demonstrates retrying a flaky channel call until it succeeds.
func Example() {
	exec := resilience.NewExecutor(
		resilience.Config{MaxRetries: 3, FailureThreshold: 5},
		resilience.WithBackoffStrategy(resilience.FixedBackoff{}),
		resilience.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	attempts := 0
	err := exec.Execute(context.Background(), notification.ChannelEmail, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("gateway hiccup: %w", notification.ErrChannelUnavailable)
		}
		return nil
	})

	fmt.Println("err:", err)
	fmt.Println("attempts:", attempts)

	// Output:
	// err: <nil>
	// attempts: 3
}
