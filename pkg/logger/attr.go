package logger

import (
	"log/slog"

	"github.com/google/uuid"
)

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// NotificationID records the notification identifier under "notification_id".
func NotificationID(id uuid.UUID) slog.Attr {
	return slog.String("notification_id", id.String())
}

// RecipientID records the recipient identifier under "recipient_id".
func RecipientID(id uuid.UUID) slog.Attr {
	return slog.String("recipient_id", id.String())
}

// JobID records the queue job identifier under "job_id".
func JobID(id uuid.UUID) slog.Attr {
	return slog.String("job_id", id.String())
}

// Channel records the delivery channel under "channel".
func Channel(ch string) slog.Attr {
	return slog.String("channel", ch)
}

// Component records the component name under "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// RetryCount records the retry count under "retry_count".
func RetryCount(count int) slog.Attr {
	return slog.Int("retry_count", count)
}
