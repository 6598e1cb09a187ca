package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/notifykit/notify/pkg/notification"
)

// RecipientCounts is the per-status breakdown of a notification's recipients.
type RecipientCounts struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// RecipientOutcome carries the settled result of one recipient dispatch, to
// be written back through the repository.
type RecipientOutcome struct {
	Status       notification.Status
	DeliveredAt  *time.Time
	FailedReason string
}

// Repository is the status store contract the orchestrator drives. Status
// writes enforce the lifecycle transition rules and are serialized per
// record, so concurrent processing units never interleave a read-modify-write
// on the same row.
type Repository interface {
	// CreateNotification persists a new notification record.
	CreateNotification(ctx context.Context, n *notification.Notification) error

	// CreateRecipients persists a batch of recipient records atomically.
	// Either every recipient is persisted or none is.
	CreateRecipients(ctx context.Context, recipients []notification.Recipient) error

	// GetNotification fetches a notification by id, returning
	// notification.ErrNotFound when it does not exist.
	GetNotification(ctx context.Context, id uuid.UUID) (*notification.Notification, error)

	// ListNotifications returns one page of notifications ordered by
	// creation time descending, plus the total count.
	ListNotifications(ctx context.Context, offset, limit int) ([]notification.Notification, int, error)

	// UpdateNotificationStatus moves a notification to the next lifecycle
	// status, rejecting illegal transitions with
	// notification.ErrInvalidTransition. Re-applying the current terminal
	// status is a no-op. A non-empty reason is stored as the failure reason;
	// sentAt, when set, records the completion instant.
	UpdateNotificationStatus(ctx context.Context, id uuid.UUID, next notification.Status, reason string, sentAt *time.Time) error

	// ListRecipients returns every recipient of a notification in insertion
	// order.
	ListRecipients(ctx context.Context, notificationID uuid.UUID) ([]notification.Recipient, error)

	// UpdateRecipientOutcome settles one recipient with its dispatch result,
	// incrementing the retry counter on failure.
	UpdateRecipientOutcome(ctx context.Context, recipientID uuid.UUID, outcome RecipientOutcome) error

	// CountRecipients returns the per-status recipient breakdown used by the
	// status summary endpoint.
	CountRecipients(ctx context.Context, notificationID uuid.UUID) (RecipientCounts, error)
}
