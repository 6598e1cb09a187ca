// Package queue provides the deferred-execution collaborator of the dispatch
// pipeline: a small at-least-once job queue that eventually invokes a
// processing function with a notification id, either immediately or at a
// scheduled instant.
//
// The queue stores jobs through a Storage interface with two shipped
// implementations: MemoryStorage for tests and single-process deployments,
// and RedisStorage for shared deployments, which keeps due jobs in a sorted
// set scored by their run time and claims them atomically.
//
// Delivery is at-least-once: a crashed worker leaves its job to be claimed
// again after the lock expires. Handlers must therefore be idempotent, which
// the dispatch orchestrator's ProcessNotification guarantees through its
// status transition rules.
package queue
