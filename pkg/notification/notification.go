package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Channel represents a delivery mechanism.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
	// ChannelAll fans out across every concrete channel.
	ChannelAll Channel = "all"
)

// Valid checks if the channel is within the supported set.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelAll:
		return true
	default:
		return false
	}
}

// Concrete reports whether the channel maps to a single delivery mechanism.
func (c Channel) Concrete() bool {
	return c.Valid() && c != ChannelAll
}

// ParseChannel converts a string into a Channel, rejecting unknown values at
// the earliest point the enum enters the system.
func ParseChannel(s string) (Channel, error) {
	c := Channel(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidChannel, s)
	}
	return c, nil
}

// ConcreteChannels returns the channels an "all" request expands to.
func ConcreteChannels() []Channel {
	return []Channel{ChannelEmail, ChannelSMS, ChannelPush}
}

// Priority represents the notification priority level. It is informational
// and does not alter dispatch order.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid checks if the priority is within the supported set.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Notification is one message intent directed at one or more recipients over
// one or more channels.
type Notification struct {
	ID            uuid.UUID  `json:"id"`
	Subject       string     `json:"subject,omitempty"`
	Content       string     `json:"content"`
	Channel       Channel    `json:"channel"`
	Priority      Priority   `json:"priority"`
	Status        Status     `json:"status"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Recipient is one delivery target for a notification. Exactly the contact
// fields relevant to its channel are set; the others stay nil.
type Recipient struct {
	ID             uuid.UUID  `json:"id"`
	NotificationID uuid.UUID  `json:"notification_id"`
	UserID         *int64     `json:"user_id,omitempty"`
	Email          *string    `json:"email,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	PushToken      *string    `json:"push_token,omitempty"`
	Status         Status     `json:"status"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	FailedReason   string     `json:"failed_reason,omitempty"`
	RetryCount     int        `json:"retry_count"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Contact is the transient fan-out entry produced by recipient resolution.
// It is never persisted directly; the orchestrator turns it into a Recipient.
type Contact struct {
	UserID    *int64  `json:"user_id,omitempty"`
	Email     *string `json:"email,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	PushToken *string `json:"push_token,omitempty"`
}

// HasField reports whether the contact carries the field the given concrete
// channel requires.
func (c Contact) HasField(ch Channel) bool {
	switch ch {
	case ChannelEmail:
		return c.Email != nil && *c.Email != ""
	case ChannelSMS:
		return c.Phone != nil && *c.Phone != ""
	case ChannelPush:
		return c.PushToken != nil && *c.PushToken != ""
	default:
		return false
	}
}

// Empty reports whether no contact field is set at all.
func (c Contact) Empty() bool {
	return !c.HasField(ChannelEmail) && !c.HasField(ChannelSMS) && !c.HasField(ChannelPush)
}

// EmailContact builds a direct-email fan-out entry with no upstream user.
func EmailContact(email string) Contact {
	return Contact{Email: &email}
}

// SMSContact builds a direct-SMS fan-out entry with no upstream user.
func SMSContact(phone string) Contact {
	return Contact{Phone: &phone}
}

// Request is the inbound create-notification request as handed over by the
// transport layer, already deserialized.
type Request struct {
	UserIDs     []int64    `json:"user_ids"`
	Emails      []string   `json:"emails,omitempty"`
	SMSNumbers  []string   `json:"sms_numbers,omitempty"`
	Subject     string     `json:"subject,omitempty"`
	Content     string     `json:"content"`
	Channel     Channel    `json:"channel"`
	Priority    Priority   `json:"priority"`
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`
}
