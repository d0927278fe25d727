// Package store provides the SQLite delivery journal.
//
// The journal is append-only:
//   - Rulesets: the rules behind each ruleset hash, as canonical JSON
//   - Firings: one row per dispatched event that had bindings
//   - Deliveries: one row per chat line sent for a firing
//
// All ordering uses the seq column (the engine's logical clock), never
// timestamps. Queries order by seq ASC with the id as a binary tie-break
// so results are identical across runs.
//
// Each firing stores the transcript hash of its deliveries. Verify
// recomputes the hashes to detect rows edited after the fact.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
