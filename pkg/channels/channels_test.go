package channels_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifykit/notify/pkg/channels"
	"github.com/notifykit/notify/pkg/email"
	"github.com/notifykit/notify/pkg/notification"
	"github.com/notifykit/notify/pkg/push"
	"github.com/notifykit/notify/pkg/sms"
)

// fake senders record calls and fail per-destination on demand.

type fakeEmailSender struct {
	sent []email.SendParams
	fail map[string]error
}

func (f *fakeEmailSender) Send(_ context.Context, p email.SendParams) error {
	if err, ok := f.fail[p.To]; ok {
		return err
	}
	f.sent = append(f.sent, p)
	return nil
}

type fakeSMSSender struct {
	sent []sms.Message
	fail map[string]error
}

func (f *fakeSMSSender) Send(_ context.Context, m sms.Message) error {
	if err, ok := f.fail[m.To]; ok {
		return err
	}
	f.sent = append(f.sent, m)
	return nil
}

type fakePushSender struct {
	sent []push.Message
	fail map[string]error
}

func (f *fakePushSender) Send(_ context.Context, m push.Message) error {
	if err, ok := f.fail[m.Token]; ok {
		return err
	}
	f.sent = append(f.sent, m)
	return nil
}

func TestEmailDispatcher(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("validate recipients", func(t *testing.T) {
		t.Parallel()

		d, err := channels.NewEmailDispatcher(&fakeEmailSender{})
		require.NoError(t, err)

		assert.True(t, d.ValidateRecipients([]notification.Contact{
			notification.EmailContact("a@example.com"),
		}))
		assert.False(t, d.ValidateRecipients([]notification.Contact{
			notification.EmailContact("a@example.com"),
			notification.SMSContact("+15551112222"),
		}))
	})

	t.Run("all delivered", func(t *testing.T) {
		t.Parallel()

		sender := &fakeEmailSender{}
		d, err := channels.NewEmailDispatcher(sender)
		require.NoError(t, err)

		outcome, err := d.Send(ctx, "subj", "body", []notification.Contact{
			notification.EmailContact("a@example.com"),
			notification.EmailContact("b@example.com"),
		})
		require.NoError(t, err)
		assert.Equal(t, channels.OutcomeSuccess, outcome.Status())
		assert.Len(t, sender.sent, 2)
		assert.Equal(t, "subj", sender.sent[0].Subject)
	})

	t.Run("partial failure keeps per recipient attribution", func(t *testing.T) {
		t.Parallel()

		sender := &fakeEmailSender{fail: map[string]error{
			"bad@example.com": notification.ErrPermanentRejection,
		}}
		d, err := channels.NewEmailDispatcher(sender)
		require.NoError(t, err)

		outcome, err := d.Send(ctx, "subj", "body", []notification.Contact{
			notification.EmailContact("ok@example.com"),
			notification.EmailContact("bad@example.com"),
		})
		require.NoError(t, err)
		assert.Equal(t, channels.OutcomePartialFailure, outcome.Status())

		delivered, failed := outcome.Counts()
		assert.Equal(t, 1, delivered)
		assert.Equal(t, 1, failed)
		assert.True(t, outcome.Results[0].Delivered)
		assert.False(t, outcome.Results[1].Delivered)
		assert.NotEmpty(t, outcome.Results[1].Reason)
	})

	t.Run("whole batch transient surfaces as retryable error", func(t *testing.T) {
		t.Parallel()

		sender := &fakeEmailSender{fail: map[string]error{
			"a@example.com": notification.ErrChannelUnavailable,
			"b@example.com": notification.ErrChannelUnavailable,
		}}
		d, err := channels.NewEmailDispatcher(sender)
		require.NoError(t, err)

		outcome, err := d.Send(ctx, "subj", "body", []notification.Contact{
			notification.EmailContact("a@example.com"),
			notification.EmailContact("b@example.com"),
		})
		assert.ErrorIs(t, err, notification.ErrChannelUnavailable)
		assert.Empty(t, outcome.Results)
	})

	t.Run("nil sender rejected", func(t *testing.T) {
		t.Parallel()

		_, err := channels.NewEmailDispatcher(nil)
		assert.ErrorIs(t, err, channels.ErrSenderNil)
	})
}

func TestSMSDispatcher(t *testing.T) {
	t.Parallel()

	sender := &fakeSMSSender{}
	d, err := channels.NewSMSDispatcher(sender)
	require.NoError(t, err)

	outcome, err := d.Send(context.Background(), "ignored subject", "content", []notification.Contact{
		notification.SMSContact("+15551112222"),
	})
	require.NoError(t, err)
	assert.Equal(t, channels.OutcomeSuccess, outcome.Status())
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "content", sender.sent[0].Body)
}

func TestPushDispatcher(t *testing.T) {
	t.Parallel()

	sender := &fakePushSender{}
	d, err := channels.NewPushDispatcher(sender)
	require.NoError(t, err)

	token := "fcm_alice"
	outcome, err := d.Send(context.Background(), "title", "content", []notification.Contact{
		{PushToken: &token},
	})
	require.NoError(t, err)
	assert.Equal(t, channels.OutcomeSuccess, outcome.Status())
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "title", sender.sent[0].Title)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	emailD, err := channels.NewEmailDispatcher(&fakeEmailSender{})
	require.NoError(t, err)
	smsD, err := channels.NewSMSDispatcher(&fakeSMSSender{})
	require.NoError(t, err)
	pushD, err := channels.NewPushDispatcher(&fakePushSender{})
	require.NoError(t, err)

	t.Run("resolves concrete channels", func(t *testing.T) {
		t.Parallel()

		reg, err := channels.NewRegistry(emailD, smsD, pushD)
		require.NoError(t, err)

		d, err := reg.Get(notification.ChannelSMS)
		require.NoError(t, err)
		assert.Equal(t, notification.ChannelSMS, d.Channel())

		assert.Equal(t, notification.ConcreteChannels(), reg.Channels())
	})

	t.Run("unregistered channel is a configuration error", func(t *testing.T) {
		t.Parallel()

		reg, err := channels.NewRegistry(emailD)
		require.NoError(t, err)

		_, err = reg.Get(notification.ChannelPush)
		assert.ErrorIs(t, err, notification.ErrInvalidChannel)
	})

	t.Run("duplicate dispatcher rejected", func(t *testing.T) {
		t.Parallel()

		_, err := channels.NewRegistry(emailD, emailD)
		assert.Error(t, err)
	})
}
