// Package audit emits security events for every decision point of the
// two-factor flow: enrollment, successful and failed verifications, replay
// attempts, and infrastructure alerts.
//
// The sink is strictly fire-and-forget. Storage failures are swallowed so an
// audit outage can never break authentication; deployments that need
// delivery guarantees should plug in a Storage that buffers durably.
package audit
