package dispatch_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notify/pkg/channels"
	"github.com/notifykit/notify/pkg/directory"
	"github.com/notifykit/notify/pkg/dispatch"
	"github.com/notifykit/notify/pkg/notification"
	"github.com/notifykit/notify/pkg/resilience"
	"github.com/notifykit/notify/pkg/resolver"
)

// fakeDispatcher delivers to every contact except the ones listed in fail,
// keyed by the channel's contact field. A non-nil sendErr fails the whole
// call instead.
type fakeDispatcher struct {
	ch      notification.Channel
	sendErr error

	mu        sync.Mutex
	fail      map[string]string
	truncate  int
	sendCalls int
}

func (f *fakeDispatcher) Channel() notification.Channel { return f.ch }

func (f *fakeDispatcher) ValidateRecipients(contacts []notification.Contact) bool {
	for _, c := range contacts {
		if !c.HasField(f.ch) {
			return false
		}
	}
	return true
}

func (f *fakeDispatcher) Send(_ context.Context, _, _ string, contacts []notification.Contact) (channels.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendCalls++

	if f.sendErr != nil {
		return channels.Outcome{}, f.sendErr
	}

	out := channels.Outcome{Results: make([]channels.RecipientResult, len(contacts))}
	for i, c := range contacts {
		res := channels.RecipientResult{Contact: c, Delivered: true}
		if reason, bad := f.fail[f.target(c)]; bad {
			res = channels.RecipientResult{Contact: c, Reason: reason}
		}
		out.Results[i] = res
	}
	if f.truncate > 0 && f.truncate <= len(out.Results) {
		// Misbehaving backend that drops results off the end.
		out.Results = out.Results[:len(out.Results)-f.truncate]
	}
	return out, nil
}

func (f *fakeDispatcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sendCalls
}

func (f *fakeDispatcher) target(c notification.Contact) string {
	switch f.ch {
	case notification.ChannelEmail:
		if c.Email != nil {
			return *c.Email
		}
	case notification.ChannelSMS:
		if c.Phone != nil {
			return *c.Phone
		}
	case notification.ChannelPush:
		if c.PushToken != nil {
			return *c.PushToken
		}
	}
	return ""
}

// captureEnqueuer records hand-offs instead of touching a real queue.
type captureEnqueuer struct {
	mu  sync.Mutex
	ids []uuid.UUID
	at  []time.Time
}

func (e *captureEnqueuer) Enqueue(_ context.Context, id uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids = append(e.ids, id)
	e.at = append(e.at, time.Time{})
	return nil
}

func (e *captureEnqueuer) EnqueueAt(_ context.Context, id uuid.UUID, at time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ids = append(e.ids, id)
	e.at = append(e.at, at)
	return nil
}

type testHarness struct {
	svc      *dispatch.Service
	repo     *dispatch.MemoryRepository
	enqueuer *captureEnqueuer
	email    *fakeDispatcher
	sms      *fakeDispatcher
	push     *fakeDispatcher
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	dir := directory.NewMemoryDirectory()
	dir.Seed(
		directory.Contact{UserID: 1, Email: "alice@example.com", Phone: "+15550000001", PushToken: "token-alice"},
		directory.Contact{UserID: 2, Email: "bob@example.com", Phone: "+15550000002"},
		directory.Contact{UserID: 3, Email: "charlie@example.com", PushToken: "token-charlie"},
		directory.Contact{UserID: 4, Phone: "+15550000004", PushToken: "token-david"},
	)
	res, err := resolver.New(dir)
	require.NoError(t, err)

	h := &testHarness{
		repo:     dispatch.NewMemoryRepository(),
		enqueuer: &captureEnqueuer{},
		email:    &fakeDispatcher{ch: notification.ChannelEmail},
		sms:      &fakeDispatcher{ch: notification.ChannelSMS},
		push:     &fakeDispatcher{ch: notification.ChannelPush},
	}

	reg, err := channels.NewRegistry(h.email, h.sms, h.push)
	require.NoError(t, err)

	exec := resilience.NewExecutor(
		resilience.Config{MaxRetries: 1, FailureThreshold: 100, RecoveryTimeout: time.Minute},
		resilience.WithBackoffStrategy(resilience.FixedBackoff{}),
	)

	h.svc, err = dispatch.NewService(h.repo, res, reg, exec, h.enqueuer)
	require.NoError(t, err)
	return h
}

func TestService_CreateNotification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("email to known user is queued", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		receipt, err := h.svc.CreateNotification(ctx, notification.Request{
			UserIDs:  []int64{1},
			Content:  "welcome aboard",
			Channel:  notification.ChannelEmail,
			Priority: notification.PriorityHigh,
		})
		require.NoError(t, err)
		assert.Equal(t, notification.StatusQueued, receipt.Status)
		assert.Equal(t, 1, receipt.Recipients)

		require.Len(t, h.enqueuer.ids, 1)
		assert.Equal(t, receipt.ID, h.enqueuer.ids[0])
		assert.True(t, h.enqueuer.at[0].IsZero())

		got, err := h.svc.GetNotification(ctx, receipt.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusQueued, got.Status)
	})

	t.Run("unknown user yields no recipients and a failed record", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		_, err := h.svc.CreateNotification(ctx, notification.Request{
			UserIDs:  []int64{999},
			Content:  "hello",
			Channel:  notification.ChannelEmail,
			Priority: notification.PriorityLow,
		})
		require.ErrorIs(t, err, notification.ErrNoRecipients)

		all, total, err := h.svc.ListNotifications(ctx, 0, 10)
		require.NoError(t, err)
		require.Equal(t, 1, total)
		assert.Equal(t, notification.StatusFailed, all[0].Status)
		assert.Equal(t, notification.ErrNoRecipients.Error(), all[0].FailureReason)
		assert.Empty(t, h.enqueuer.ids)
	})

	t.Run("validation failure leaves no record", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		_, err := h.svc.CreateNotification(ctx, notification.Request{
			UserIDs:  []int64{1},
			Content:  "   ",
			Channel:  notification.ChannelEmail,
			Priority: notification.PriorityLow,
		})
		require.ErrorIs(t, err, notification.ErrValidationFailed)

		var vErr *notification.ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.Messages, "content cannot be empty")

		_, total, err := h.svc.ListNotifications(ctx, 0, 10)
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("future scheduled_at defers processing", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		at := time.Now().Add(time.Hour).UTC()
		receipt, err := h.svc.CreateNotification(ctx, notification.Request{
			UserIDs:     []int64{2},
			Content:     "see you later",
			Channel:     notification.ChannelEmail,
			Priority:    notification.PriorityMedium,
			ScheduledAt: &at,
		})
		require.NoError(t, err)
		assert.Equal(t, notification.StatusScheduled, receipt.Status)

		require.Len(t, h.enqueuer.at, 1)
		assert.Equal(t, at, h.enqueuer.at[0])
	})

	t.Run("all channel fans out per contact field", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		receipt, err := h.svc.CreateNotification(ctx, notification.Request{
			UserIDs:  []int64{1},
			Content:  "everywhere",
			Channel:  notification.ChannelAll,
			Priority: notification.PriorityCritical,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, receipt.Recipients)
	})
}

func TestService_ProcessNotification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	create := func(t *testing.T, h *testHarness, req notification.Request) uuid.UUID {
		t.Helper()
		receipt, err := h.svc.CreateNotification(ctx, req)
		require.NoError(t, err)
		return receipt.ID
	}

	t.Run("single email recipient ends sent", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		id := create(t, h, notification.Request{
			UserIDs:  []int64{1},
			Content:  "welcome aboard",
			Channel:  notification.ChannelEmail,
			Priority: notification.PriorityHigh,
		})

		require.NoError(t, h.svc.ProcessNotification(ctx, id))

		summary, err := h.svc.NotificationStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, summary.Status)
		assert.Equal(t, dispatch.RecipientCounts{Total: 1, Delivered: 1}, summary.Recipients)
		assert.NotNil(t, summary.SentAt)
		assert.Equal(t, 1, h.email.calls())
	})

	t.Run("all channels dispatch independently", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		id := create(t, h, notification.Request{
			UserIDs:  []int64{1},
			Content:  "everywhere",
			Channel:  notification.ChannelAll,
			Priority: notification.PriorityMedium,
		})

		require.NoError(t, h.svc.ProcessNotification(ctx, id))

		summary, err := h.svc.NotificationStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, summary.Status)
		assert.Equal(t, dispatch.RecipientCounts{Total: 3, Delivered: 3}, summary.Recipients)
		assert.Equal(t, 1, h.email.calls())
		assert.Equal(t, 1, h.sms.calls())
		assert.Equal(t, 1, h.push.calls())
	})

	t.Run("per-recipient failure settles notification failed", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.email.fail = map[string]string{"bob@example.com": "mailbox full"}

		id := create(t, h, notification.Request{
			UserIDs:  []int64{1, 2},
			Content:  "mixed fortune",
			Channel:  notification.ChannelEmail,
			Priority: notification.PriorityMedium,
		})

		require.NoError(t, h.svc.ProcessNotification(ctx, id))

		summary, err := h.svc.NotificationStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, summary.Status)
		assert.Equal(t, dispatch.RecipientCounts{Total: 2, Delivered: 1, Failed: 1}, summary.Recipients)
	})

	t.Run("sibling channel failure does not abort the others", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.sms.sendErr = fmt.Errorf("gateway down: %w", notification.ErrChannelUnavailable)

		id := create(t, h, notification.Request{
			UserIDs:  []int64{1},
			Content:  "everywhere",
			Channel:  notification.ChannelAll,
			Priority: notification.PriorityMedium,
		})

		require.NoError(t, h.svc.ProcessNotification(ctx, id))

		summary, err := h.svc.NotificationStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, summary.Status)
		assert.Equal(t, dispatch.RecipientCounts{Total: 3, Delivered: 2, Failed: 1}, summary.Recipients)
		// The whole-call failure was retried once before settling.
		assert.Equal(t, 2, h.sms.calls())
		assert.Equal(t, 1, h.email.calls())
		assert.Equal(t, 1, h.push.calls())

		recs, err := h.repo.ListRecipients(ctx, id)
		require.NoError(t, err)
		for _, rec := range recs {
			if rec.Phone != nil {
				assert.Equal(t, notification.StatusFailed, rec.Status)
				assert.Contains(t, rec.FailedReason, "retry attempts exhausted")
			}
		}
	})

	t.Run("reprocessing a settled notification is a no-op", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		id := create(t, h, notification.Request{
			UserIDs:  []int64{1},
			Content:  "once only",
			Channel:  notification.ChannelEmail,
			Priority: notification.PriorityHigh,
		})

		require.NoError(t, h.svc.ProcessNotification(ctx, id))
		require.NoError(t, h.svc.ProcessNotification(ctx, id))

		assert.Equal(t, 1, h.email.calls())
	})

	t.Run("delivered recipients are not re-dispatched on retry", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.email.fail = map[string]string{"bob@example.com": "mailbox full"}

		id := create(t, h, notification.Request{
			UserIDs:  []int64{1, 2},
			Content:  "second chance",
			Channel:  notification.ChannelEmail,
			Priority: notification.PriorityMedium,
		})
		require.NoError(t, h.svc.ProcessNotification(ctx, id))

		// Bob's mailbox clears up before the retry pass.
		h.email.mu.Lock()
		h.email.fail = nil
		h.email.mu.Unlock()

		require.NoError(t, h.svc.ProcessNotification(ctx, id))

		summary, err := h.svc.NotificationStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, summary.Status)
		assert.Equal(t, dispatch.RecipientCounts{Total: 2, Delivered: 2}, summary.Recipients)
	})

	t.Run("redelivery resumes a dispatch stranded in processing", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		id := create(t, h, notification.Request{
			UserIDs:  []int64{1},
			Content:  "pick up where we left off",
			Channel:  notification.ChannelEmail,
			Priority: notification.PriorityHigh,
		})

		// A worker claimed the job and crashed after marking PROCESSING but
		// before settling anything. The queue redelivers the job later.
		require.NoError(t, h.repo.UpdateNotificationStatus(ctx, id, notification.StatusProcessing, "", nil))

		require.NoError(t, h.svc.ProcessNotification(ctx, id))

		summary, err := h.svc.NotificationStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, summary.Status)
		assert.Equal(t, dispatch.RecipientCounts{Total: 1, Delivered: 1}, summary.Recipients)
		assert.Equal(t, 1, h.email.calls())
	})

	t.Run("mismatched dispatcher result count fails the channel", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		h.email.truncate = 1

		id := create(t, h, notification.Request{
			UserIDs:  []int64{1, 2},
			Content:  "who got this",
			Channel:  notification.ChannelEmail,
			Priority: notification.PriorityMedium,
		})

		require.NoError(t, h.svc.ProcessNotification(ctx, id))

		// With no per-recipient attribution possible, nobody may be left
		// pending or counted as delivered.
		summary, err := h.svc.NotificationStatus(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusFailed, summary.Status)
		assert.Equal(t, dispatch.RecipientCounts{Total: 2, Failed: 2}, summary.Recipients)

		recs, err := h.repo.ListRecipients(ctx, id)
		require.NoError(t, err)
		for _, rec := range recs {
			assert.Contains(t, rec.FailedReason, "results for")
		}
	})

	t.Run("unknown notification", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		err := h.svc.ProcessNotification(ctx, uuid.New())
		require.ErrorIs(t, err, notification.ErrNotFound)
	})
}

func TestService_CancelNotification(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("scheduled notification can be cancelled", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		at := time.Now().Add(time.Hour).UTC()
		receipt, err := h.svc.CreateNotification(ctx, notification.Request{
			UserIDs:     []int64{1},
			Content:     "never mind",
			Channel:     notification.ChannelEmail,
			Priority:    notification.PriorityLow,
			ScheduledAt: &at,
		})
		require.NoError(t, err)

		require.NoError(t, h.svc.CancelNotification(ctx, receipt.ID))

		got, err := h.svc.GetNotification(ctx, receipt.ID)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusCancelled, got.Status)

		// A stale queue entry for a cancelled notification is skipped.
		require.NoError(t, h.svc.ProcessNotification(ctx, receipt.ID))
		assert.Zero(t, h.email.calls())
	})

	t.Run("queued notification cannot be cancelled", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		receipt, err := h.svc.CreateNotification(ctx, notification.Request{
			UserIDs:  []int64{1},
			Content:  "too late",
			Channel:  notification.ChannelEmail,
			Priority: notification.PriorityLow,
		})
		require.NoError(t, err)

		err = h.svc.CancelNotification(ctx, receipt.ID)
		require.ErrorIs(t, err, notification.ErrCancelNotAllowed)
	})
}
