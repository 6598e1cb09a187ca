package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// HandlerFunc processes one notification. It must be idempotent: the queue
// delivers at least once.
type HandlerFunc func(ctx context.Context, notificationID uuid.UUID) error

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithLogger sets the worker's logger.
func WithLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithRetryDelay sets the delay applied before a failed job becomes
// claimable again.
func WithRetryDelay(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.retryDelay = d
		}
	}
}

// Worker pulls due jobs from storage and runs the handler, one notification
// per job, with bounded concurrency. Each job is an independent unit of
// work; no ordering is guaranteed between jobs.
type Worker struct {
	storage Storage
	handler HandlerFunc
	logger  *slog.Logger

	workerID        uuid.UUID
	pollInterval    time.Duration
	lockTimeout     time.Duration
	retryDelay      time.Duration
	shutdownTimeout time.Duration
	sem             chan struct{}

	wg       sync.WaitGroup
	mu       sync.Mutex
	cancel   context.CancelFunc
	ctx      context.Context
	stopping atomic.Bool
}

// NewWorker creates a worker from config.
func NewWorker(storage Storage, handler HandlerFunc, cfg Config, opts ...WorkerOption) (*Worker, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if handler == nil {
		return nil, ErrHandlerNil
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	lockTimeout := cfg.LockTimeout
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Minute
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	shutdownTimeout := cfg.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}

	w := &Worker{
		storage:         storage,
		handler:         handler,
		logger:          slog.Default(),
		workerID:        uuid.New(),
		pollInterval:    pollInterval,
		lockTimeout:     lockTimeout,
		retryDelay:      30 * time.Second,
		shutdownTimeout: shutdownTimeout,
		sem:             make(chan struct{}, maxConcurrent),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins pulling jobs in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil {
		return ErrWorkerAlreadyStarted
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.stopping.Store(false)

	go w.run()

	w.logger.Info("queue worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Int("max_concurrent", cap(w.sem)))
	return nil
}

// Stop cancels the poll loop and waits up to the shutdown timeout for
// in-flight jobs to finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return ErrWorkerNotStarted
	}
	cancel := w.cancel
	w.cancel = nil
	w.stopping.Store(true)
	w.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(w.shutdownTimeout):
		// Abandoned jobs keep their lock until it expires, then another
		// worker reclaims them.
		w.logger.Warn("queue worker stop timed out with jobs in flight",
			slog.String("worker_id", w.workerID.String()))
	}

	w.logger.Info("queue worker stopped", slog.String("worker_id", w.workerID.String()))
	return nil
}

// Run starts the worker and returns a function suitable for errgroup use.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return w.Stop()
	}
}

func (w *Worker) run() {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.drain()
		}
	}
}

// drain claims and launches jobs until storage is empty or all slots are
// busy, so a burst of due jobs does not wait one poll tick per job.
func (w *Worker) drain() {
	for {
		select {
		case w.sem <- struct{}{}:
		default:
			return
		}

		if w.stopping.Load() {
			<-w.sem
			return
		}

		job, err := w.storage.ClaimJob(w.ctx, w.lockTimeout)
		if err != nil {
			<-w.sem
			if !errors.Is(err, ErrNoJobToClaim) && !errors.Is(err, context.Canceled) {
				w.logger.Error("failed to claim job",
					slog.String("worker_id", w.workerID.String()),
					slog.String("error", err.Error()))
			}
			return
		}

		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer func() { <-w.sem }()
			w.process(job)
		}()
	}
}

func (w *Worker) process(job *Job) {
	start := time.Now()

	// The job context is deliberately detached from the worker lifecycle so
	// graceful shutdown lets in-flight dispatches finish.
	ctx, cancel := context.WithTimeout(context.Background(), w.lockTimeout)
	defer cancel()

	err := w.safeHandle(ctx, job.NotificationID)
	duration := time.Since(start)

	if err != nil {
		w.logger.Error("job failed",
			slog.String("worker_id", w.workerID.String()),
			slog.String("job_id", job.ID.String()),
			slog.String("notification_id", job.NotificationID.String()),
			slog.Int("attempt", job.Attempts),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))

		if failErr := w.storage.FailJob(context.Background(), job.ID, err.Error(), w.retryDelay); failErr != nil {
			w.logger.Error("failed to record job failure",
				slog.String("job_id", job.ID.String()),
				slog.String("error", failErr.Error()))
		}
		return
	}

	if completeErr := w.storage.CompleteJob(context.Background(), job.ID); completeErr != nil {
		w.logger.Error("failed to mark job completed",
			slog.String("job_id", job.ID.String()),
			slog.String("error", completeErr.Error()))
		return
	}

	w.logger.Info("job completed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("job_id", job.ID.String()),
		slog.String("notification_id", job.NotificationID.String()),
		slog.Duration("duration", duration))
}

// safeHandle runs the handler with panic recovery so one bad notification
// cannot take the worker down.
func (w *Worker) safeHandle(ctx context.Context, notificationID uuid.UUID) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in handler: %v", r)
		}
	}()
	return w.handler(ctx, notificationID)
}
