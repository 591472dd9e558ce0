// Package store keeps the run log of a scenario execution in SQLite.
//
// The log records every cycle, every report (with one row per active
// keycode) and every assertion outcome. Scenario checks and the trace
// command query it after the run.
//
// # Patterns
//
// Logical ordering:
//   - Cycles are ordered by cycle id, reports by their run-wide sequence
//     number and outcomes by evaluation ordinal.
//   - Elapsed time is simulated time, never wall time.
//
// Deterministic reads:
//   - Every query orders by its logical key, so identical runs read back
//     identically.
//   - Report key lists are stored as canonical JSON.
//
// The log lives in memory and is discarded on Close. Nothing is persisted
// between runs.
package store
