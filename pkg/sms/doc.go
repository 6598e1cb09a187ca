// Package sms provides the outbound SMS capability the sms channel
// dispatcher is built on. The Client speaks a plain JSON HTTP gateway
// protocol (POST one message per request), which covers the common
// aggregator APIs without binding the module to a single vendor SDK.
package sms
