package email

import (
	"context"
	"fmt"
	"regexp"
)

// Sender represents an interface for sending a single email message.
type Sender interface {
	Send(ctx context.Context, params SendParams) error
}

// SendParams represents the parameters for sending an email.
type SendParams struct {
	To      string `json:"to"`            // Email address of the recipient
	Subject string `json:"subject"`       // Subject of the email
	Body    string `json:"body"`          // Plain-text body of the email
	Tag     string `json:"tag,omitempty"` // Optional categorization tag
}

// emailRegex is a pragmatic address check; full RFC 5322 validation belongs
// to the receiving MTA.
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks the parameters before any send attempt.
func (p SendParams) Validate() error {
	if p.To == "" {
		return fmt.Errorf("%w: recipient address is required", ErrInvalidParams)
	}
	if !emailRegex.MatchString(p.To) {
		return fmt.Errorf("%w: %q is not a valid email address", ErrInvalidParams, p.To)
	}
	if p.Body == "" {
		return fmt.Errorf("%w: body is required", ErrInvalidParams)
	}
	return nil
}
