// Package email provides the outbound email capability the email channel
// dispatcher is built on.
//
// Sender is the single-method interface the rest of the system depends on.
// Two implementations ship with the package: a Postmark-backed client for
// production and a DevSender that writes outbound mail to disk for local
// development, where sending real email is undesirable.
package email
