// Package backup manages single-use recovery codes: the static fallback
// credential offered when the primary authenticator device is unavailable.
//
// Each account gets exactly ten 8-character codes drawn uniformly from
// [0-9A-Z]. The set is persisted as one encrypted value; a successful
// verification removes the matched code in the same read-modify-write, so a
// code can never be accepted twice. Zero remaining codes is a valid terminal
// state that callers should surface as a prompt to regenerate.
package backup
