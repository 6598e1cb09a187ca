// Package dispatch contains the notification dispatch orchestrator and the
// status store contract it drives.
//
// The Service is the entry point of the pipeline. CreateNotification
// validates the inbound request, persists the notification, resolves and
// persists its recipients, and hands the notification id to the queue for
// immediate or scheduled processing. ProcessNotification is the worker-side
// entry point: it dispatches to every required channel under the resilience
// policy and settles per-recipient and notification-level status.
//
// ProcessNotification is idempotent and safe to invoke more than once for
// the same notification, which is required because the queue delivers
// at-least-once. Re-processing a settled notification is a no-op, and
// recipients that already reached a terminal state are never re-dispatched.
//
// Status writes go through the Repository, which enforces the lifecycle
// transition rules and serializes updates per record. Two implementations
// ship with the package: MemoryRepository and PostgresRepository.
package dispatch
