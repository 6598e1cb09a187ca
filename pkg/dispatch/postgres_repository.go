package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notifykit/notify/pkg/notification"
)

// PostgresRepository is the production Repository on top of a pgx connection
// pool. Row-level locks (SELECT ... FOR UPDATE) serialize status writes per
// record, and recipient batches are inserted inside one transaction.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository on the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) (*PostgresRepository, error) {
	if pool == nil {
		return nil, errors.New("pgx pool cannot be nil")
	}
	return &PostgresRepository{pool: pool}, nil
}

// CreateNotification persists a new notification record.
func (r *PostgresRepository) CreateNotification(ctx context.Context, n *notification.Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (id, subject, content, channel, priority, status, scheduled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.Subject, n.Content, n.Channel, n.Priority, n.Status, n.ScheduledAt, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// CreateRecipients persists a batch of recipient records inside one
// transaction.
func (r *PostgresRepository) CreateRecipients(ctx context.Context, recipients []notification.Recipient) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	batch := &pgx.Batch{}
	for _, rec := range recipients {
		batch.Queue(`
			INSERT INTO notification_recipients
				(id, notification_id, user_id, email, phone, push_token, status, retry_count, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			rec.ID, rec.NotificationID, rec.UserID, rec.Email, rec.Phone, rec.PushToken,
			rec.Status, rec.RetryCount, rec.CreatedAt, rec.UpdatedAt)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert recipients: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// GetNotification fetches a notification by id.
func (r *PostgresRepository) GetNotification(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, subject, content, channel, priority, status, scheduled_at, sent_at, failure_reason, created_at, updated_at
		FROM notifications WHERE id = $1`, id)
	n, err := scanNotification(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: notification %s", notification.ErrNotFound, id)
		}
		return nil, fmt.Errorf("select notification: %w", err)
	}
	return n, nil
}

// ListNotifications returns one page ordered by creation time descending.
func (r *PostgresRepository) ListNotifications(ctx context.Context, offset, limit int) ([]notification.Notification, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM notifications`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, subject, content, channel, priority, status, scheduled_at, sent_at, failure_reason, created_at, updated_at
		FROM notifications
		ORDER BY created_at DESC, id DESC
		OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	out := make([]notification.Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, total, nil
}

// UpdateNotificationStatus moves a notification through its lifecycle under a
// row lock, enforcing the transition table on the freshly read status.
func (r *PostgresRepository) UpdateNotificationStatus(ctx context.Context, id uuid.UUID, next notification.Status, reason string, sentAt *time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	var current notification.Status
	err = tx.QueryRow(ctx, `SELECT status FROM notifications WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: notification %s", notification.ErrNotFound, id)
		}
		return fmt.Errorf("lock notification: %w", err)
	}
	if !current.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", notification.ErrInvalidTransition, current, next)
	}
	if current == next && current.Terminal() {
		// Idempotent re-apply under at-least-once delivery.
		return tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx, `
		UPDATE notifications
		SET status = $2,
		    failure_reason = CASE WHEN $3 <> '' THEN $3 ELSE failure_reason END,
		    sent_at = COALESCE($4, sent_at),
		    updated_at = now()
		WHERE id = $1`, id, next, reason, sentAt)
	if err != nil {
		return fmt.Errorf("update notification status: %w", err)
	}
	return tx.Commit(ctx)
}

// ListRecipients returns every recipient of a notification in insertion
// order.
func (r *PostgresRepository) ListRecipients(ctx context.Context, notificationID uuid.UUID) ([]notification.Recipient, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, notification_id, user_id, email, phone, push_token, status, delivered_at, failed_reason, retry_count, created_at, updated_at
		FROM notification_recipients
		WHERE notification_id = $1
		ORDER BY created_at, id`, notificationID)
	if err != nil {
		return nil, fmt.Errorf("select recipients: %w", err)
	}
	defer rows.Close()

	var out []notification.Recipient
	for rows.Next() {
		var (
			rec          notification.Recipient
			failedReason *string
		)
		if err := rows.Scan(&rec.ID, &rec.NotificationID, &rec.UserID, &rec.Email, &rec.Phone, &rec.PushToken,
			&rec.Status, &rec.DeliveredAt, &failedReason, &rec.RetryCount, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		if failedReason != nil {
			rec.FailedReason = *failedReason
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipients: %w", err)
	}
	return out, nil
}

// UpdateRecipientOutcome settles one recipient with its dispatch result.
func (r *PostgresRepository) UpdateRecipientOutcome(ctx context.Context, recipientID uuid.UUID, outcome RecipientOutcome) error {
	failed := outcome.Status == notification.StatusFailed
	tag, err := r.pool.Exec(ctx, `
		UPDATE notification_recipients
		SET status = $2,
		    delivered_at = COALESCE($3, delivered_at),
		    failed_reason = CASE WHEN $4 THEN $5 ELSE failed_reason END,
		    retry_count = retry_count + CASE WHEN $4 THEN 1 ELSE 0 END,
		    updated_at = now()
		WHERE id = $1`, recipientID, outcome.Status, outcome.DeliveredAt, failed, outcome.FailedReason)
	if err != nil {
		return fmt.Errorf("update recipient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: recipient %s", notification.ErrNotFound, recipientID)
	}
	return nil
}

// CountRecipients returns the per-status recipient breakdown.
func (r *PostgresRepository) CountRecipients(ctx context.Context, notificationID uuid.UUID) (RecipientCounts, error) {
	var counts RecipientCounts
	err := r.pool.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE status = 'delivered'),
		       count(*) FILTER (WHERE status = 'failed')
		FROM notification_recipients
		WHERE notification_id = $1`, notificationID).
		Scan(&counts.Total, &counts.Delivered, &counts.Failed)
	if err != nil {
		return RecipientCounts{}, fmt.Errorf("count recipients: %w", err)
	}
	counts.Pending = counts.Total - counts.Delivered - counts.Failed
	return counts, nil
}

// scanNotification reads one notification row from either QueryRow or Rows.
func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var (
		n             notification.Notification
		failureReason *string
	)
	if err := row.Scan(&n.ID, &n.Subject, &n.Content, &n.Channel, &n.Priority, &n.Status,
		&n.ScheduledAt, &n.SentAt, &failureReason, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return nil, err
	}
	if failureReason != nil {
		n.FailureReason = *failureReason
	}
	return &n, nil
}
