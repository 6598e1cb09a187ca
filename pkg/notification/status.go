package notification

// Status is the shared lifecycle enumeration for notifications and
// recipients, interpreted per entity.
type Status string

const (
	StatusPending    Status = "pending"
	StatusScheduled  Status = "scheduled"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusDelivered  Status = "delivered"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// Valid checks if the status is within the supported set.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusQueued, StatusProcessing,
		StatusSent, StatusDelivered, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether the status ends the lifecycle. FAILED is terminal
// for the record but still permits bounded retry re-entry into PROCESSING;
// the retry bound is enforced by the caller, not the transition table.
func (s Status) Terminal() bool {
	switch s {
	case StatusSent, StatusDelivered, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// transitions is the closed set of forward moves. Re-applying a terminal
// status to itself is handled in CanTransitionTo, not here. PROCESSING lists
// itself so a redelivered job can resume a record left behind by a worker
// that crashed mid-dispatch.
var transitions = map[Status][]Status{
	StatusPending:    {StatusScheduled, StatusQueued, StatusFailed, StatusCancelled},
	StatusScheduled:  {StatusProcessing, StatusFailed, StatusCancelled},
	StatusQueued:     {StatusProcessing, StatusFailed},
	StatusProcessing: {StatusProcessing, StatusSent, StatusDelivered, StatusFailed},
	StatusFailed:     {StatusProcessing},
}

// CanTransitionTo reports whether moving from s to next is legal. Applying a
// terminal status to itself is allowed so that status updates stay idempotent
// under at-least-once queue delivery.
func (s Status) CanTransitionTo(next Status) bool {
	if s.Terminal() && s == next {
		return true
	}
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}
