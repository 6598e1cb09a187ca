package channels

import (
	"context"
	"errors"

	"github.com/notifykit/notify/pkg/notification"
	"github.com/notifykit/notify/pkg/sms"
)

// SMSDispatcher delivers notifications over SMS through any sms.Sender.
// The subject is dropped: SMS has no subject line, only the content travels.
type SMSDispatcher struct {
	sender sms.Sender
}

// NewSMSDispatcher creates the sms channel dispatcher.
func NewSMSDispatcher(sender sms.Sender) (*SMSDispatcher, error) {
	if sender == nil {
		return nil, ErrSenderNil
	}
	return &SMSDispatcher{sender: sender}, nil
}

func (d *SMSDispatcher) Channel() notification.Channel {
	return notification.ChannelSMS
}

func (d *SMSDispatcher) ValidateRecipients(contacts []notification.Contact) bool {
	return validateAll(contacts, notification.ChannelSMS)
}

// Send implements Dispatcher.
func (d *SMSDispatcher) Send(ctx context.Context, _, content string, contacts []notification.Contact) (Outcome, error) {
	var (
		outcome      Outcome
		allTransient = len(contacts) > 0
		lastErr      error
	)

	for _, c := range contacts {
		if !c.HasField(notification.ChannelSMS) {
			outcome.Results = append(outcome.Results, RecipientResult{
				Contact: c, Reason: "recipient has no phone number",
			})
			allTransient = false
			continue
		}

		err := d.sender.Send(ctx, sms.Message{To: *c.Phone, Body: content})
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
