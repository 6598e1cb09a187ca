// Package resolver turns a notification request plus a target channel into
// the list of contact fan-out entries the orchestrator persists as
// recipients.
//
// Resolution rules:
//
//   - Every requested user identifier is looked up in the directory. Unknown
//     identifiers are skipped silently; a request may mix valid and stale ids.
//   - For each contact field relevant to the target channel that is present
//     on the directory record, one entry carrying only that field is emitted.
//   - Directly supplied email addresses contribute one entry each for the
//     email channel; direct SMS numbers do the same for the sms channel.
//     Push tokens are never supplied directly.
//   - Entries are never merged across channels, and duplicate contact values
//     are not deduplicated: an identifier-derived email equal to a directly
//     supplied one produces two recipients. Deduplication is intentionally
//     left to consumers who want it.
//
// Ordering of the returned entries carries no meaning.
package resolver
