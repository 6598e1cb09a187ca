// Package redis manages the Redis connection the queue storage runs on:
// URL-based configuration, startup retry, and a health check for readiness
// probes.
package redis
