package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/notifykit/notify/pkg/notification"
)

// MemoryRepository is an in-memory Repository for tests and local
// development. A single mutex serializes every operation, which trivially
// satisfies the per-record serialization contract.
type MemoryRepository struct {
	mu            sync.Mutex
	notifications map[uuid.UUID]*notification.Notification
	recipients    map[uuid.UUID]*notification.Recipient
	byParent      map[uuid.UUID][]uuid.UUID
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		notifications: make(map[uuid.UUID]*notification.Notification),
		recipients:    make(map[uuid.UUID]*notification.Recipient),
		byParent:      make(map[uuid.UUID][]uuid.UUID),
	}
}

// CreateNotification persists a new notification record.
func (r *MemoryRepository) CreateNotification(_ context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.notifications[n.ID]; exists {
		return fmt.Errorf("notification %s already exists", n.ID)
	}
	clone := *n
	r.notifications[n.ID] = &clone
	return nil
}

// CreateRecipients persists a batch of recipient records atomically.
func (r *MemoryRepository) CreateRecipients(_ context.Context, recipients []notification.Recipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range recipients {
		if _, exists := r.recipients[rec.ID]; exists {
			return fmt.Errorf("recipient %s already exists", rec.ID)
		}
	}
	for _, rec := range recipients {
		clone := rec
		r.recipients[rec.ID] = &clone
		r.byParent[rec.NotificationID] = append(r.byParent[rec.NotificationID], rec.ID)
	}
	return nil
}

// GetNotification fetches a notification by id.
func (r *MemoryRepository) GetNotification(_ context.Context, id uuid.UUID) (*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[id]
	if !ok {
		return nil, fmt.Errorf("%w: notification %s", notification.ErrNotFound, id)
	}
	clone := *n
	return &clone, nil
}

// ListNotifications returns one page ordered by creation time descending.
func (r *MemoryRepository) ListNotifications(_ context.Context, offset, limit int) ([]notification.Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := make([]notification.Notification, 0, len(r.notifications))
	for _, n := range r.notifications {
		all = append(all, *n)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID.String() > all[j].ID.String()
	})

	total := len(all)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []notification.Notification{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}

// UpdateNotificationStatus moves a notification through its lifecycle.
func (r *MemoryRepository) UpdateNotificationStatus(_ context.Context, id uuid.UUID, next notification.Status, reason string, sentAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[id]
	if !ok {
		return fmt.Errorf("%w: notification %s", notification.ErrNotFound, id)
	}
	if !n.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", notification.ErrInvalidTransition, n.Status, next)
	}
	if n.Status == next && n.Status.Terminal() {
		// Idempotent re-apply under at-least-once delivery.
		return nil
	}

	n.Status = next
	n.UpdatedAt = time.Now().UTC()
	if reason != "" {
		n.FailureReason = reason
	}
	if sentAt != nil {
		t := *sentAt
		n.SentAt = &t
	}
	return nil
}

// ListRecipients returns every recipient of a notification in insertion
// order.
func (r *MemoryRepository) ListRecipients(_ context.Context, notificationID uuid.UUID) ([]notification.Recipient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := r.byParent[notificationID]
	out := make([]notification.Recipient, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.recipients[id])
	}
	return out, nil
}

// UpdateRecipientOutcome settles one recipient with its dispatch result.
func (r *MemoryRepository) UpdateRecipientOutcome(_ context.Context, recipientID uuid.UUID, outcome RecipientOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.recipients[recipientID]
	if !ok {
		return fmt.Errorf("%w: recipient %s", notification.ErrNotFound, recipientID)
	}

	rec.Status = outcome.Status
	rec.UpdatedAt = time.Now().UTC()
	if outcome.DeliveredAt != nil {
		t := *outcome.DeliveredAt
		rec.DeliveredAt = &t
	}
	if outcome.Status == notification.StatusFailed {
		rec.FailedReason = outcome.FailedReason
		rec.RetryCount++
	}
	return nil
}

// CountRecipients returns the per-status recipient breakdown.
func (r *MemoryRepository) CountRecipients(_ context.Context, notificationID uuid.UUID) (RecipientCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var counts RecipientCounts
	for _, id := range r.byParent[notificationID] {
		counts.Total++
		switch r.recipients[id].Status {
		case notification.StatusDelivered:
			counts.Delivered++
		case notification.StatusFailed:
			counts.Failed++
		default:
			counts.Pending++
		}
	}
	return counts, nil
}
