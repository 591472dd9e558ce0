// Package assertion defines the expectations a test run evaluates.
//
// An Assertion is bound to a Context (the driver's read-only view of the run)
// and evaluated either against the report that was just emitted or against
// the state at the end of a cycle. Evaluation always yields a definite
// boolean; an assertion that is evaluated before being bound fails.
//
// Assertions are stored in one of two containers:
//
//   - Queue: ordered, consumed front to back, one assertion per event.
//   - Set: unordered, every member is evaluated on every event and never
//     removed.
//
// Both containers bind each assertion to their Context on insertion. Neither
// evaluates anything; evaluation policy belongs to the driver.
package assertion
