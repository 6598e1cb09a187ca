package channels

import (
	"context"
	"errors"

	"github.com/notifykit/notify/pkg/email"
	"github.com/notifykit/notify/pkg/notification"
)

// EmailDispatcher delivers notifications over email, one message per
// recipient, through any email.Sender.
type EmailDispatcher struct {
	sender email.Sender
}

// NewEmailDispatcher creates the email channel dispatcher.
func NewEmailDispatcher(sender email.Sender) (*EmailDispatcher, error) {
	if sender == nil {
		return nil, ErrSenderNil
	}
	return &EmailDispatcher{sender: sender}, nil
}

func (d *EmailDispatcher) Channel() notification.Channel {
	return notification.ChannelEmail
}

func (d *EmailDispatcher) ValidateRecipients(contacts []notification.Contact) bool {
	return validateAll(contacts, notification.ChannelEmail)
}

// Send implements Dispatcher.
func (d *EmailDispatcher) Send(ctx context.Context, subject, content string, contacts []notification.Contact) (Outcome, error) {
	var (
		outcome      Outcome
		allTransient = len(contacts) > 0
		lastErr      error
	)

	for _, c := range contacts {
		if !c.HasField(notification.ChannelEmail) {
			outcome.Results = append(outcome.Results, RecipientResult{
				Contact: c, Reason: "recipient has no email address",
			})
			allTransient = false
			continue
		}

		err := d.sender.Send(ctx, email.SendParams{
			To:      *c.Email,
			Subject: subject,
			Body:    content,
			Tag:     "notification",
		})
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

	// When every recipient hit a transient service failure, surface the call
	// itself as retryable instead of settling per-recipient outcomes.
	if allTransient && lastErr != nil {
		return Outcome{}, lastErr
	}
	return outcome, nil
}
