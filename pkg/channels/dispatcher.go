package channels

import (
	"context"

	"github.com/notifykit/notify/pkg/notification"
)

// OutcomeStatus classifies a dispatch call as a whole.
type OutcomeStatus string

const (
	OutcomeSuccess        OutcomeStatus = "success"
	OutcomePartialFailure OutcomeStatus = "partial_failure"
	OutcomeFailure        OutcomeStatus = "failure"
)

// RecipientResult is the per-recipient detail of a dispatch call. A
// delivered recipient has Delivered set and an empty Reason; a failed one
// carries the captured failure reason.
type RecipientResult struct {
	Contact   notification.Contact
	Delivered bool
	Reason    string
}

// Outcome is the structured result of one channel Send call.
type Outcome struct {
	Results []RecipientResult
}

// Status derives the call-level classification from the per-recipient
// results.
func (o Outcome) Status() OutcomeStatus {
	delivered, failed := o.Counts()
	switch {
	case failed == 0:
		return OutcomeSuccess
	case delivered == 0:
		return OutcomeFailure
	default:
		return OutcomePartialFailure
	}
}

// Counts returns the number of delivered and failed recipients.
func (o Outcome) Counts() (delivered, failed int) {
	for _, r := range o.Results {
		if r.Delivered {
			delivered++
		} else {
			failed++
		}
	}
	return delivered, failed
}

// Dispatcher is the capability set every delivery channel implements.
type Dispatcher interface {
	// Channel identifies the concrete channel this dispatcher serves.
	Channel() notification.Channel

	// ValidateRecipients reports whether every contact carries the field
	// this channel requires. Used as a pre-flight gate: a channel with zero
	// valid recipients is skipped, not failed.
	ValidateRecipients(contacts []notification.Contact) bool

	// Send delivers the message to every contact, attributing the outcome
	// per recipient. The returned error is non-nil only when the whole call
	// failed transiently and should be retried as a unit; in that case the
	// Outcome is empty.
	Send(ctx context.Context, subject, content string, contacts []notification.Contact) (Outcome, error)
}

// validateAll is the shared pre-flight check implementation.
func validateAll(contacts []notification.Contact, ch notification.Channel) bool {
	for _, c := range contacts {
		if !c.HasField(ch) {
			return false
		}
	}
	return true
}
