package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Enqueuer hands notification ids to the queue for eventual processing.
type Enqueuer struct {
	storage     Storage
	maxAttempts int
}

// NewEnqueuer creates an Enqueuer on top of the given storage.
func NewEnqueuer(storage Storage, cfg Config) (*Enqueuer, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Enqueuer{storage: storage, maxAttempts: maxAttempts}, nil
}

// Enqueue schedules a notification for immediate processing.
func (e *Enqueuer) Enqueue(ctx context.Context, notificationID uuid.UUID) error {
	return e.enqueueAt(ctx, notificationID, time.Now())
}

// EnqueueAt schedules a notification for processing at or after the given
// instant.
func (e *Enqueuer) EnqueueAt(ctx context.Context, notificationID uuid.UUID, at time.Time) error {
	return e.enqueueAt(ctx, notificationID, at)
}

func (e *Enqueuer) enqueueAt(ctx context.Context, notificationID uuid.UUID, at time.Time) error {
	job := &Job{
		ID:             uuid.New(),
		NotificationID: notificationID,
		Status:         JobStatusPending,
		MaxAttempts:    e.maxAttempts,
		RunAt:          at.UTC(),
		CreatedAt:      time.Now().UTC(),
	}
	if err := e.storage.CreateJob(ctx, job); err != nil {
		return fmt.Errorf("%w: notification %s: %w", ErrJobCreate, notificationID, err)
	}
	return nil
}
