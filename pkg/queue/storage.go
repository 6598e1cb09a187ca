package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Storage persists jobs and hands them to workers exactly once per lock
// window.
type Storage interface {
	// CreateJob stores a new pending job.
	CreateJob(ctx context.Context, job *Job) error

	// ClaimJob atomically claims the next job whose RunAt is due, marking it
	// processing and locking it until now+lockFor. Returns ErrNoJobToClaim
	// when nothing is due.
	ClaimJob(ctx context.Context, lockFor time.Duration) (*Job, error)

	// CompleteJob marks a claimed job as completed.
	CompleteJob(ctx context.Context, jobID uuid.UUID) error

	// FailJob records a failed attempt. The job returns to pending with the
	// given delay while attempts remain, otherwise it settles as failed.
	FailJob(ctx context.Context, jobID uuid.UUID, reason string, retryDelay time.Duration) error
}
