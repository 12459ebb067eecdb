// Package redis provides an environment-configured, retrying connector for
// the Redis-backed pieces of the subsystem: the credential store, the replay
// guard, and the rate limiter.
package redis
