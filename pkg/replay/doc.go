// Package replay blocks reuse of accepted one-time codes.
//
// A TOTP code stays valid for period × (2×tolerance + 1) seconds because
// verification tolerates adjacent time steps; the guard remembers accepted
// codes per account for exactly that long. In-process and Redis
// implementations are provided; the Redis one leans on key TTLs instead of
// explicit pruning.
package replay
