package channels

import (
	"context"
	"errors"

	"github.com/notifykit/notify/pkg/notification"
	"github.com/notifykit/notify/pkg/push"
)

// PushDispatcher delivers notifications to device tokens through any
// push.Sender. The subject becomes the push title.
type PushDispatcher struct {
	sender push.Sender
}

// NewPushDispatcher creates the push channel dispatcher.
func NewPushDispatcher(sender push.Sender) (*PushDispatcher, error) {
	if sender == nil {
		return nil, ErrSenderNil
	}
	return &PushDispatcher{sender: sender}, nil
}

func (d *PushDispatcher) Channel() notification.Channel {
	return notification.ChannelPush
}

func (d *PushDispatcher) ValidateRecipients(contacts []notification.Contact) bool {
	return validateAll(contacts, notification.ChannelPush)
}

// Send implements Dispatcher.
func (d *PushDispatcher) Send(ctx context.Context, subject, content string, contacts []notification.Contact) (Outcome, error) {
	var (
		outcome      Outcome
		allTransient = len(contacts) > 0
		lastErr      error
	)

	for _, c := range contacts {
		if !c.HasField(notification.ChannelPush) {
			outcome.Results = append(outcome.Results, RecipientResult{
				Contact: c, Reason: "recipient has no push token",
			})
			allTransient = false
			continue
		}

		err := d.sender.Send(ctx, push.Message{Token: *c.PushToken, Title: subject, Body: content})
		if err == nil {
			outcome.Results = append(outcome.Results, RecipientResult{Contact: c, Delivered: true})
			allTransient = false
			continue
		}

		lastErr = err
		if !errors.Is(err, notification.ErrChannelUnavailable) {
			allTransient = false
		}
		outcome.Results = append(outcome.Results, RecipientResult{Contact: c, Reason: err.Error()})
	}

	if allTransient && lastErr != nil {
		return Outcome{}, lastErr
	}
	return outcome, nil
}
