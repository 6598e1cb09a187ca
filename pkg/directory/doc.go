// Package directory abstracts the external identity-lookup service that maps
// an upstream user identifier to its contact attributes.
//
// The dispatch pipeline consumes it as a black box: given an identifier,
// return the optional contact record or nil when the identifier is unknown.
// Unknown identifiers are not errors; requests may legitimately mix valid and
// stale ids.
//
// Two implementations ship with the package:
//
//   - MemoryDirectory, a seedable in-memory map for tests and local
//     development.
//   - HTTPDirectory, a JSON client for a remote contact service.
package directory
