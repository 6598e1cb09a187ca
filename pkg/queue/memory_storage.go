package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStorage is an in-memory Storage for tests and single-process
// deployments. All operations are guarded by one mutex; a claim is therefore
// atomic with respect to concurrent workers in the same process.
type MemoryStorage struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Job
}

// NewMemoryStorage creates an empty in-memory job store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{jobs: make(map[uuid.UUID]*Job)}
}

// CreateJob implements Storage.
func (s *MemoryStorage) CreateJob(_ context.Context, job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

// ClaimJob implements Storage. The earliest due pending job wins; expired
// locks make a processing job claimable again, which is what gives the queue
// its at-least-once property.
func (s *MemoryStorage) ClaimJob(_ context.Context, lockFor time.Duration) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	var candidate *Job
	for _, j := range s.jobs {
		claimable := j.Status == JobStatusPending ||
			(j.Status == JobStatusProcessing && j.LockedUntil != nil && j.LockedUntil.Before(now))
		if !claimable || j.RunAt.After(now) {
			continue
		}
		if candidate == nil || j.RunAt.Before(candidate.RunAt) {
			candidate = j
		}
	}
	if candidate == nil {
		return nil, ErrNoJobToClaim
	}

	candidate.Status = JobStatusProcessing
	candidate.Attempts++
	lockedUntil := now.Add(lockFor)
	candidate.LockedUntil = &lockedUntil

	cp := *candidate
	return &cp, nil
}

// CompleteJob implements Storage.
func (s *MemoryStorage) CompleteJob(_ context.Context, jobID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	j.Status = JobStatusCompleted
	j.LockedUntil = nil
	return nil
}

// FailJob implements Storage.
func (s *MemoryStorage) FailJob(_ context.Context, jobID uuid.UUID, reason string, retryDelay time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}

	j.Error = reason
	j.LockedUntil = nil
	if j.Attempts >= j.MaxAttempts {
		j.Status = JobStatusFailed
		return nil
	}
	j.Status = JobStatusPending
	j.RunAt = time.Now().Add(retryDelay)
	return nil
}

// Job returns a copy of the stored job, for tests and inspection.
func (s *MemoryStorage) Job(jobID uuid.UUID) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobID]
	if !ok {
		return nil, false
	}
	cp := *j
	return &cp, true
}

// Jobs returns copies of all stored jobs, for tests and inspection.
func (s *MemoryStorage) Jobs() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		cp := *j
		out = append(out, &cp)
	}
	return out
}
