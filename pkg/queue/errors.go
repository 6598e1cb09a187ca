package queue

import "errors"

// Common errors
var (
	// ErrStorageNil is returned when a nil storage is provided.
	ErrStorageNil = errors.New("storage cannot be nil")

	// ErrHandlerNil is returned when a worker is started without a handler.
	ErrHandlerNil = errors.New("handler cannot be nil")

	// ErrNoJobToClaim indicates no due job is available. Not a failure.
	ErrNoJobToClaim = errors.New("no job available to claim")

	// ErrJobNotFound is returned when updating a job that does not exist.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobCreate is returned when job creation in storage fails.
	ErrJobCreate = errors.New("failed to create job in storage")

	// ErrWorkerAlreadyStarted is returned by Start on a running worker.
	ErrWorkerAlreadyStarted = errors.New("worker already started")

	// ErrWorkerNotStarted is returned by Stop on an idle worker.
	ErrWorkerNotStarted = errors.New("worker not started")
)
