package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/notifykit/notify/pkg/channels"
	"github.com/notifykit/notify/pkg/notification"
	"github.com/notifykit/notify/pkg/resilience"
	"github.com/notifykit/notify/pkg/resolver"
)

// Enqueuer hands notification ids to the processing queue. Satisfied by
// queue.Enqueuer.
type Enqueuer interface {
	Enqueue(ctx context.Context, notificationID uuid.UUID) error
	EnqueueAt(ctx context.Context, notificationID uuid.UUID, at time.Time) error
}

// Receipt is the acknowledgement returned by CreateNotification. Processing
// continues asynchronously after the receipt is handed out.
type Receipt struct {
	ID          uuid.UUID           `json:"id"`
	Status      notification.Status `json:"status"`
	Recipients  int                 `json:"recipients"`
	ScheduledAt *time.Time          `json:"scheduled_at,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

// StatusSummary is the point-in-time progress view of one notification.
type StatusSummary struct {
	ID            uuid.UUID            `json:"id"`
	Status        notification.Status  `json:"status"`
	Channel       notification.Channel `json:"channel"`
	Recipients    RecipientCounts      `json:"recipients"`
	FailureReason string               `json:"failure_reason,omitempty"`
	SentAt        *time.Time           `json:"sent_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// ServiceOption configures a Service beyond its required dependencies.
type ServiceOption func(*Service)

// WithLogger sets the logger used for orchestration events.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces the time source. Mainly used by tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service is the dispatch orchestrator. It owns the notification lifecycle
// from inbound request to settled per-recipient outcome.
type Service struct {
	repo     Repository
	resolver *resolver.Resolver
	registry *channels.Registry
	exec     *resilience.Executor
	enqueuer Enqueuer
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the orchestrator from its collaborators.
func NewService(repo Repository, res *resolver.Resolver, reg *channels.Registry, exec *resilience.Executor, enq Enqueuer, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, ErrRepositoryNil
	}
	if res == nil {
		return nil, ErrResolverNil
	}
	if reg == nil {
		return nil, ErrRegistryNil
	}
	if exec == nil {
		return nil, ErrExecutorNil
	}
	if enq == nil {
		return nil, ErrEnqueuerNil
	}

	s := &Service{
		repo:     repo,
		resolver: res,
		registry: reg,
		exec:     exec,
		enqueuer: enq,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// CreateNotification validates the request, persists the notification and
// its resolved recipients, and hands the id to the queue. Validation
// failures leave no record behind; any failure after the notification row
// exists marks it FAILED before the error propagates.
func (s *Service) CreateNotification(ctx context.Context, req notification.Request) (*Receipt, error) {
	if msgs := notification.ValidateRequest(req, s.now()); len(msgs) > 0 {
		return nil, notification.NewValidationError(msgs)
	}

	now := s.now().UTC()
	n := &notification.Notification{
		ID:          uuid.New(),
		Subject:     req.Subject,
		Content:     req.Content,
		Channel:     req.Channel,
		Priority:    req.Priority,
		Status:      notification.StatusPending,
		ScheduledAt: req.ScheduledAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	contacts, err := s.resolve(ctx, req)
	if err != nil {
		s.markFailed(ctx, n.ID, err.Error())
		return nil, err
	}
	if len(contacts) == 0 {
		s.markFailed(ctx, n.ID, notification.ErrNoRecipients.Error())
		return nil, fmt.Errorf("%w: notification %s", notification.ErrNoRecipients, n.ID)
	}

	recipients := make([]notification.Recipient, len(contacts))
	for i, c := range contacts {
		recipients[i] = notification.Recipient{
			ID:             uuid.New(),
			NotificationID: n.ID,
			UserID:         c.UserID,
			Email:          c.Email,
			Phone:          c.Phone,
			PushToken:      c.PushToken,
			Status:         notification.StatusPending,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
	}
	if err := s.repo.CreateRecipients(ctx, recipients); err != nil {
		s.markFailed(ctx, n.ID, "failed to persist recipients")
		return nil, fmt.Errorf("create recipients: %w", err)
	}

	// The status moves off PENDING before the job is enqueued, otherwise a
	// fast worker could claim the job while the record still rejects the
	// PROCESSING transition.
	status := notification.StatusQueued
	if req.ScheduledAt != nil && req.ScheduledAt.After(s.now()) {
		status = notification.StatusScheduled
	}
	if err := s.repo.UpdateNotificationStatus(ctx, n.ID, status, "", nil); err != nil {
		s.markFailed(ctx, n.ID, "failed to persist status")
		return nil, fmt.Errorf("update notification status: %w", err)
	}
	if status == notification.StatusScheduled {
		err = s.enqueuer.EnqueueAt(ctx, n.ID, *req.ScheduledAt)
	} else {
		err = s.enqueuer.Enqueue(ctx, n.ID)
	}
	if err != nil {
		s.markFailed(ctx, n.ID, "failed to enqueue for processing")
		return nil, fmt.Errorf("%w: %w", ErrEnqueueFailed, err)
	}

	s.logger.InfoContext(ctx, "notification accepted",
		slog.String("notification_id", n.ID.String()),
		slog.String("channel", string(n.Channel)),
		slog.String("status", string(status)),
		slog.Int("recipients", len(recipients)))

	return &Receipt{
		ID:          n.ID,
		Status:      status,
		Recipients:  len(recipients),
		ScheduledAt: req.ScheduledAt,
		CreatedAt:   now,
	}, nil
}

// ProcessNotification is the worker-side entry point. It is idempotent:
// re-processing a settled notification is a no-op, and recipients already in
// a terminal state are never re-dispatched.
func (s *Service) ProcessNotification(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.GetNotification(ctx, id)
	if err != nil {
		return err
	}

	switch n.Status {
	case notification.StatusSent, notification.StatusDelivered, notification.StatusCancelled:
		s.logger.InfoContext(ctx, "skipping settled notification",
			slog.String("notification_id", id.String()),
			slog.String("status", string(n.Status)))
		return nil
	}

	// A record left in PROCESSING by a worker that crashed mid-dispatch falls
	// through here; redelivery re-applies PROCESSING and resumes it.

	if err := s.repo.UpdateNotificationStatus(ctx, id, notification.StatusProcessing, "", nil); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	recipients, err := s.repo.ListRecipients(ctx, id)
	if err != nil {
		return fmt.Errorf("list recipients: %w", err)
	}

	var anyFailed bool
	for _, ch := range s.targetChannels(n.Channel) {
		failed, err := s.dispatchChannel(ctx, n, ch, recipients)
		if err != nil {
			return err
		}
		anyFailed = anyFailed || failed
	}

	sentAt := s.now().UTC()
	if anyFailed {
		if err := s.repo.UpdateNotificationStatus(ctx, id, notification.StatusFailed, "one or more recipients failed", nil); err != nil {
			return fmt.Errorf("mark failed: %w", err)
		}
		s.logger.WarnContext(ctx, "notification settled with failures",
			slog.String("notification_id", id.String()))
		return nil
	}
	if err := s.repo.UpdateNotificationStatus(ctx, id, notification.StatusSent, "", &sentAt); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	s.logger.InfoContext(ctx, "notification sent",
		slog.String("notification_id", id.String()))
	return nil
}

// CancelNotification cancels a notification that has not started processing.
func (s *Service) CancelNotification(ctx context.Context, id uuid.UUID) error {
	n, err := s.repo.GetNotification(ctx, id)
	if err != nil {
		return err
	}
	switch n.Status {
	case notification.StatusPending, notification.StatusScheduled:
	default:
		return fmt.Errorf("%w: status is %s", notification.ErrCancelNotAllowed, n.Status)
	}
	if err := s.repo.UpdateNotificationStatus(ctx, id, notification.StatusCancelled, "", nil); err != nil {
		return fmt.Errorf("cancel notification: %w", err)
	}
	s.logger.InfoContext(ctx, "notification cancelled",
		slog.String("notification_id", id.String()))
	return nil
}

// GetNotification fetches one notification by id.
func (s *Service) GetNotification(ctx context.Context, id uuid.UUID) (*notification.Notification, error) {
	return s.repo.GetNotification(ctx, id)
}

// ListNotifications returns one page of notifications plus the total count.
func (s *Service) ListNotifications(ctx context.Context, offset, limit int) ([]notification.Notification, int, error) {
	return s.repo.ListNotifications(ctx, offset, limit)
}

// NotificationStatus returns the progress summary for one notification.
func (s *Service) NotificationStatus(ctx context.Context, id uuid.UUID) (*StatusSummary, error) {
	n, err := s.repo.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountRecipients(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count recipients: %w", err)
	}
	return &StatusSummary{
		ID:            n.ID,
		Status:        n.Status,
		Channel:       n.Channel,
		Recipients:    counts,
		FailureReason: n.FailureReason,
		SentAt:        n.SentAt,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
	}, nil
}

// dispatchChannel sends to the subset of recipients relevant to one channel
// and settles each of them. The returned bool reports whether any recipient
// failed; a sibling channel failure never aborts the others.
func (s *Service) dispatchChannel(ctx context.Context, n *notification.Notification, ch notification.Channel, recipients []notification.Recipient) (bool, error) {
	var (
		subset   []notification.Recipient
		contacts []notification.Contact
	)
	for _, rec := range recipients {
		if rec.Status.Terminal() && rec.Status != notification.StatusFailed {
			continue
		}
		c := notification.Contact{
			UserID:    rec.UserID,
			Email:     rec.Email,
			Phone:     rec.Phone,
			PushToken: rec.PushToken,
		}
		if !c.HasField(ch) {
			continue
		}
		subset = append(subset, rec)
		contacts = append(contacts, c)
	}
	if len(subset) == 0 {
		return false, nil
	}

	dispatcher, err := s.registry.Get(ch)
	if err != nil {
		return false, err
	}
	if !dispatcher.ValidateRecipients(contacts) {
		s.logger.WarnContext(ctx, "skipping channel with invalid recipients",
			slog.String("notification_id", n.ID.String()),
			slog.String("channel", string(ch)))
		return false, nil
	}

	var outcome channels.Outcome
	callErr := s.exec.Execute(ctx, ch, func(ctx context.Context) error {
		o, err := dispatcher.Send(ctx, n.Subject, n.Content, contacts)
		if err != nil {
			return err
		}
		outcome = o
		return nil
	})
	if callErr != nil {
		// The whole channel call failed; every recipient in the subset
		// settles as failed with the shared reason.
		for _, rec := range subset {
			if err := s.repo.UpdateRecipientOutcome(ctx, rec.ID, RecipientOutcome{
				Status:       notification.StatusFailed,
				FailedReason: callErr.Error(),
			}); err != nil {
				return true, fmt.Errorf("settle recipient %s: %w", rec.ID, err)
			}
		}
		s.logger.ErrorContext(ctx, "channel dispatch failed",
			slog.String("notification_id", n.ID.String()),
			slog.String("channel", string(ch)),
			slog.String("error", callErr.Error()))
		return true, nil
	}

	if len(outcome.Results) != len(subset) {
		// A dispatcher that reports the wrong number of results cannot be
		// attributed per recipient; fail the whole channel rather than leave
		// unattributed recipients pending under a sent notification.
		reason := fmt.Sprintf("channel %s returned %d results for %d recipients", ch, len(outcome.Results), len(subset))
		for _, rec := range subset {
			if err := s.repo.UpdateRecipientOutcome(ctx, rec.ID, RecipientOutcome{
				Status:       notification.StatusFailed,
				FailedReason: reason,
			}); err != nil {
				return true, fmt.Errorf("settle recipient %s: %w", rec.ID, err)
			}
		}
		s.logger.ErrorContext(ctx, "channel dispatch result mismatch",
			slog.String("notification_id", n.ID.String()),
			slog.String("channel", string(ch)),
			slog.Int("results", len(outcome.Results)),
			slog.Int("recipients", len(subset)))
		return true, nil
	}

	now := s.now().UTC()
	var anyFailed bool
	for i, res := range outcome.Results {
		out := RecipientOutcome{Status: notification.StatusDelivered, DeliveredAt: &now}
		if !res.Delivered {
			anyFailed = true
			out = RecipientOutcome{Status: notification.StatusFailed, FailedReason: res.Reason}
		}
		if err := s.repo.UpdateRecipientOutcome(ctx, subset[i].ID, out); err != nil {
			return anyFailed, fmt.Errorf("settle recipient %s: %w", subset[i].ID, err)
		}
	}
	return anyFailed, nil
}

// resolve expands the request into fan-out entries using the channel-aware
// resolver.
func (s *Service) resolve(ctx context.Context, req notification.Request) ([]notification.Contact, error) {
	if req.Channel == notification.ChannelAll {
		return s.resolver.ResolveAll(ctx, req)
	}
	return s.resolver.Resolve(ctx, req, req.Channel)
}

// targetChannels expands the notification channel into the concrete channels
// to dispatch on.
func (s *Service) targetChannels(ch notification.Channel) []notification.Channel {
	if ch == notification.ChannelAll {
		return s.registry.Channels()
	}
	return []notification.Channel{ch}
}

// markFailed is the best-effort FAILED transition applied before an error
// propagates out of CreateNotification. Its own failure is logged, never
// allowed to mask the original error.
func (s *Service) markFailed(ctx context.Context, id uuid.UUID, reason string) {
	if err := s.repo.UpdateNotificationStatus(ctx, id, notification.StatusFailed, reason, nil); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark notification failed",
			slog.String("notification_id", id.String()),
			slog.String("error", err.Error()))
	}
}
