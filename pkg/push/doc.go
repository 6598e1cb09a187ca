// Package push provides the outbound push-notification capability the push
// channel dispatcher is built on. The Client posts one JSON message per
// device token to a push gateway (an FCM/APNs proxy or similar), keeping the
// module vendor-neutral.
package push
