// Package ratelimit bounds verification attempts per account with a sliding
// window over individual attempt timestamps: five attempts per rolling
// fifteen minutes by default.
//
// The limiter is deliberately asymmetric: failures are recorded, successes
// reset the window. A caller who produces a correct code has demonstrated
// possession of the secret, so their failed-attempt history stops mattering.
// In-memory and Redis (sorted set) stores are provided.
package ratelimit
