package notification

import "errors"

// Domain errors, designed for wrapping and classification with errors.Is.
// The split between transient and permanent failures drives the retry policy:
// only ErrChannelUnavailable (and network timeouts) are worth retrying.
var (
	// ErrValidationFailed is returned when a create request fails one or more
	// validation rules. The individual messages travel in ValidationError.
	ErrValidationFailed = errors.New("notification validation failed")

	// ErrNoRecipients is returned when recipient resolution yields nothing.
	ErrNoRecipients = errors.New("no valid recipients found")

	// ErrNotFound is returned when a notification or recipient does not exist.
	ErrNotFound = errors.New("notification not found")

	// ErrInvalidChannel is returned when a channel value is outside the
	// supported set. This is a configuration error, not a runtime one.
	ErrInvalidChannel = errors.New("invalid notification channel")

	// ErrInvalidTransition is returned when a status update would move a
	// record backward in its lifecycle.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrCancelNotAllowed is returned when cancellation is requested after
	// processing has started.
	ErrCancelNotAllowed = errors.New("notification can no longer be cancelled")

	// ErrChannelUnavailable marks a transient external-service failure.
	// Dispatchers return it (wrapped) for timeouts, connection failures and
	// 5xx responses so the resilience layer can retry.
	ErrChannelUnavailable = errors.New("channel service unavailable")

	// ErrPermanentRejection marks a non-retryable delivery failure, e.g. the
	// gateway rejected the message as malformed.
	ErrPermanentRejection = errors.New("permanent delivery rejection")
)

// ValidationError carries the full ordered list of validation messages.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	msg := "notification validation failed"
	for _, m := range e.Messages {
		msg += ": " + m
	}
	return msg
}

// Unwrap lets errors.Is(err, ErrValidationFailed) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError wraps validator output into a single error value.
func NewValidationError(messages []string) error {
	return &ValidationError{Messages: messages}
}
