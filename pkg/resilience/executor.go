package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/notifykit/notify/pkg/notification"
)

// Config holds the resilience policy configuration.
type Config struct {
	MaxRetries       int           `env:"RESILIENCE_MAX_RETRIES" envDefault:"3"`
	BaseDelay        time.Duration `env:"RESILIENCE_BASE_DELAY" envDefault:"1s"`
	MaxDelay         time.Duration `env:"RESILIENCE_MAX_DELAY" envDefault:"60s"`
	Multiplier       float64       `env:"RESILIENCE_BACKOFF_MULTIPLIER" envDefault:"2.0"`
	Jitter           bool          `env:"RESILIENCE_JITTER" envDefault:"true"`
	FailureThreshold int           `env:"RESILIENCE_FAILURE_THRESHOLD" envDefault:"5"`
	RecoveryTimeout  time.Duration `env:"RESILIENCE_RECOVERY_TIMEOUT" envDefault:"60s"`
}

// ExecutorOption configures an Executor beyond its Config.
type ExecutorOption func(*Executor)

// WithBackoffStrategy replaces the backoff derived from Config. Mainly used
// by tests to avoid real sleeps.
func WithBackoffStrategy(s BackoffStrategy) ExecutorOption {
	return func(e *Executor) {
		if s != nil {
			e.backoff = s
		}
	}
}

// WithLogger sets the logger used for retry and breaker events.
func WithLogger(l *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// Executor wraps outbound calls with retry-with-backoff and per-channel
// circuit breaking. One Executor is created at process start and shared by
// every notification-processing unit; its breakers are the only mutable
// state they share.
type Executor struct {
	cfg     Config
	backoff BackoffStrategy
	logger  *slog.Logger

	mu       sync.Mutex
	breakers map[notification.Channel]*CircuitBreaker
}

// NewExecutor creates an executor from config.
func NewExecutor(cfg Config, opts ...ExecutorOption) *Executor {
	e := &Executor{
		cfg: cfg,
		backoff: ExponentialBackoff{
			BaseDelay:  cfg.BaseDelay,
			MaxDelay:   cfg.MaxDelay,
			Multiplier: cfg.Multiplier,
			Jitter:     cfg.Jitter,
		},
		logger:   slog.Default(),
		breakers: make(map[notification.Channel]*CircuitBreaker),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Breaker returns the shared circuit breaker for a channel, creating it on
// first use.
func (e *Executor) Breaker(ch notification.Channel) *CircuitBreaker {
	e.mu.Lock()
	defer e.mu.Unlock()

	cb, ok := e.breakers[ch]
	if !ok {
		cb = NewCircuitBreaker(e.cfg.FailureThreshold, e.cfg.RecoveryTimeout)
		e.breakers[ch] = cb
	}
	return cb
}

// Execute runs call under the channel's resilience policy. Transient
// failures are retried up to MaxRetries times with exponential backoff;
// permanent failures surface immediately. When the breaker is open the call
// is rejected without touching the underlying service, with a retry-after
// hint in the error.
func (e *Executor) Execute(ctx context.Context, ch notification.Channel, call func(ctx context.Context) error) error {
	cb := e.Breaker(ch)

	var lastErr error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		// The breaker is consulted before the backoff sleep; an open breaker
		// rejects immediately instead of after a full retry interval.
		if !cb.Allow() {
			return fmt.Errorf("%w: channel %s unavailable, retry after %s",
				ErrCircuitOpen, ch, cb.RetryAfter().Round(time.Second))
		}

		if attempt > 0 {
			delay := e.backoff.NextInterval(attempt)
			e.logger.WarnContext(ctx, "retrying channel dispatch",
				slog.String("channel", string(ch)),
				slog.Int("attempt", attempt+1),
				slog.Duration("delay", delay),
				slog.String("error", lastErr.Error()))

			select {
			case <-ctx.Done():
				cb.releaseTrial()
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		err := call(ctx)
		if err == nil {
			cb.RecordSuccess()
			return nil
		}
		lastErr = err

		if !IsTransient(err) {
			// Permanent rejections say nothing about service health, so the
			// breaker is left untouched and the error surfaces as-is.
			cb.releaseTrial()
			return err
		}
		cb.RecordFailure()
	}

	e.logger.ErrorContext(ctx, "channel dispatch retries exhausted",
		slog.String("channel", string(ch)),
		slog.Int("max_retries", e.cfg.MaxRetries),
		slog.String("error", lastErr.Error()))

	return fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
}
