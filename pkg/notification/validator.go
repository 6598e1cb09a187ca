package notification

import (
	"strings"
	"time"
)

// ValidateRequest checks a create request against the business rules and
// returns human-readable messages, one per violated rule, in a stable order.
// An empty slice means the request is valid. All rules are evaluated; the
// function never short-circuits so callers can surface every problem at once.
//
// The function is pure: its only inputs are the request and the current
// instant, which the caller supplies to keep validation deterministic in
// tests. Scheduled-at comparison happens in UTC.
func ValidateRequest(req Request, now time.Time) []string {
	var errs []string

	if len(req.UserIDs) == 0 && len(req.Emails) == 0 && len(req.SMSNumbers) == 0 {
		errs = append(errs, "at least one recipient must be specified")
	}

	switch req.Channel {
	case ChannelEmail:
		if len(req.UserIDs) == 0 && len(req.Emails) == 0 {
			errs = append(errs, "email channel requires either user ids or email addresses")
		}
	case ChannelSMS:
		if len(req.UserIDs) == 0 && len(req.SMSNumbers) == 0 {
			errs = append(errs, "sms channel requires either user ids or sms numbers")
		}
	case ChannelPush:
		// Push tokens are never supplied directly, only resolved from ids.
		if len(req.UserIDs) == 0 {
			errs = append(errs, "push channel requires user ids")
		}
	case ChannelAll:
		// No requirement beyond the general recipient rule.
	default:
		errs = append(errs, "unsupported channel: "+string(req.Channel))
	}

	if strings.TrimSpace(req.Content) == "" {
		errs = append(errs, "content cannot be empty")
	}

	// "Future" is strict: scheduled-at equal to now is rejected.
	if req.ScheduledAt != nil && !req.ScheduledAt.UTC().After(now.UTC()) {
		errs = append(errs, "scheduled time must be in the future")
	}

	return errs
}
