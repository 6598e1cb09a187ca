package dispatch

import "errors"

var (
	// ErrRepositoryNil is returned by NewService when no repository is provided.
	ErrRepositoryNil = errors.New("repository cannot be nil")
	// ErrResolverNil is returned by NewService when no resolver is provided.
	ErrResolverNil = errors.New("resolver cannot be nil")
	// ErrRegistryNil is returned by NewService when no channel registry is provided.
	ErrRegistryNil = errors.New("channel registry cannot be nil")
	// ErrExecutorNil is returned by NewService when no resilience executor is provided.
	ErrExecutorNil = errors.New("resilience executor cannot be nil")
	// ErrEnqueuerNil is returned by NewService when no enqueuer is provided.
	ErrEnqueuerNil = errors.New("enqueuer cannot be nil")

	// ErrEnqueueFailed wraps queue errors raised while handing off a
	// freshly created notification.
	ErrEnqueueFailed = errors.New("failed to enqueue notification")
)
