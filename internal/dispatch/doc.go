// Package dispatch routes tasks to execution backends.
//
// A dispatch resolves a fallback chain, then walks it backend by backend.
// Each backend gets up to Policy.MaxRetries attempts with exponential backoff
// between them. A transient failure retries the same backend, a terminal
// failure moves straight to the next one, and the first success ends the
// dispatch. Every attempt is recorded in the health registry.
//
// Sub-packages:
//   - chain:  fallback chain resolution
//   - retry:  attempt plans and error classification
//   - health: per-backend counters
//   - clock:  real and virtual clocks for backoff
package dispatch
