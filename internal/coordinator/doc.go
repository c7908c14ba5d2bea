// Package coordinator orchestrates one chat request/response cycle against
// the hosted agent service.
//
// Flow:
//
//	append user message -> start run -> poll to terminal status -> resolve reply
//
// Invariants:
//   - a run always reaches a terminal status or the coordinator fails with
//     a TimeoutError after a best-effort remote cancel; it never polls
//     indefinitely.
//   - non-success terminal statuses are normal renderable outcomes, not
//     errors.
package coordinator
