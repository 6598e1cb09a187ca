// Package notification defines the core domain model for the notification
// dispatch pipeline: channels, priorities, the status lifecycle shared by
// notifications and recipients, the transient contact fan-out record, and
// request validation.
//
// The package has no external collaborators. Persistence, identity lookup,
// queueing and the HTTP surface consume these types but are defined in their
// own packages.
//
// # Status lifecycle
//
//	PENDING -> SCHEDULED | QUEUED -> PROCESSING -> SENT | DELIVERED | FAILED
//	PENDING | SCHEDULED -> CANCELLED
//	FAILED -> PROCESSING (bounded retries, enforced by the caller)
//
// Terminal states accept an idempotent re-apply of themselves so that
// at-least-once queue delivery cannot corrupt a settled record.
package notification
