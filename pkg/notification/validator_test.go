package notification_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notify/pkg/notification"
)

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("valid email request", func(t *testing.T) {
		t.Parallel()

		errs := notification.ValidateRequest(notification.Request{
			UserIDs: []int64{1},
			Channel: notification.ChannelEmail,
			Content: "hi",
		}, now)
		assert.Empty(t, errs)
	})

	t.Run("no recipients at all", func(t *testing.T) {
		t.Parallel()

		errs := notification.ValidateRequest(notification.Request{
			Channel: notification.ChannelAll,
			Content: "hi",
		}, now)
		require.Len(t, errs, 1)
		assert.Equal(t, "at least one recipient must be specified", errs[0])
	})

	t.Run("email channel without emails or ids", func(t *testing.T) {
		t.Parallel()

		errs := notification.ValidateRequest(notification.Request{
			SMSNumbers: []string{"+15551112222"},
			Channel:    notification.ChannelEmail,
			Content:    "hi",
		}, now)
		require.Len(t, errs, 1)
		assert.Equal(t, "email channel requires either user ids or email addresses", errs[0])
	})

	t.Run("sms channel without numbers or ids", func(t *testing.T) {
		t.Parallel()

		errs := notification.ValidateRequest(notification.Request{
			Emails:  []string{"a@example.com"},
			Channel: notification.ChannelSMS,
			Content: "hi",
		}, now)
		require.Len(t, errs, 1)
		assert.Equal(t, "sms channel requires either user ids or sms numbers", errs[0])
	})

	t.Run("push channel requires user ids", func(t *testing.T) {
		t.Parallel()

		errs := notification.ValidateRequest(notification.Request{
			Emails:  []string{"a@example.com"},
			Channel: notification.ChannelPush,
			Content: "hi",
		}, now)
		require.Len(t, errs, 1)
		assert.Equal(t, "push channel requires user ids", errs[0])
	})

	t.Run("whitespace content is empty", func(t *testing.T) {
		t.Parallel()

		errs := notification.ValidateRequest(notification.Request{
			UserIDs: []int64{1},
			Channel: notification.ChannelEmail,
			Content: "   \t\n",
		}, now)
		require.Len(t, errs, 1)
		assert.Equal(t, "content cannot be empty", errs[0])
	})

	t.Run("scheduled time in the past", func(t *testing.T) {
		t.Parallel()

		past := now.Add(-time.Minute)
		errs := notification.ValidateRequest(notification.Request{
			UserIDs:     []int64{1},
			Channel:     notification.ChannelEmail,
			Content:     "hi",
			ScheduledAt: &past,
		}, now)
		require.Len(t, errs, 1)
		assert.Equal(t, "scheduled time must be in the future", errs[0])
	})

	t.Run("scheduled time exactly now is rejected", func(t *testing.T) {
		t.Parallel()

		at := now
		errs := notification.ValidateRequest(notification.Request{
			UserIDs:     []int64{1},
			Channel:     notification.ChannelEmail,
			Content:     "hi",
			ScheduledAt: &at,
		}, now)
		require.Len(t, errs, 1)
		assert.Equal(t, "scheduled time must be in the future", errs[0])
	})

	t.Run("scheduled time in the future passes", func(t *testing.T) {
		t.Parallel()

		future := now.Add(time.Second)
		errs := notification.ValidateRequest(notification.Request{
			UserIDs:     []int64{1},
			Channel:     notification.ChannelEmail,
			Content:     "hi",
			ScheduledAt: &future,
		}, now)
		assert.Empty(t, errs)
	})

	t.Run("all rules evaluated without short-circuit", func(t *testing.T) {
		t.Parallel()

		past := now.Add(-time.Hour)
		errs := notification.ValidateRequest(notification.Request{
			Channel:     notification.ChannelPush,
			Content:     "  ",
			ScheduledAt: &past,
		}, now)
		require.Len(t, errs, 4)
		assert.Equal(t, []string{
			"at least one recipient must be specified",
			"push channel requires user ids",
			"content cannot be empty",
			"scheduled time must be in the future",
		}, errs)
	})

	t.Run("comparison is timezone independent", func(t *testing.T) {
		t.Parallel()

		loc := time.FixedZone("UTC+3", 3*60*60)
		// Same instant as now, expressed in another zone. Must be rejected.
		at := now.In(loc)
		errs := notification.ValidateRequest(notification.Request{
			UserIDs:     []int64{1},
			Channel:     notification.ChannelEmail,
			Content:     "hi",
			ScheduledAt: &at,
		}, now)
		require.Len(t, errs, 1)
		assert.Equal(t, "scheduled time must be in the future", errs[0])
	})
}
