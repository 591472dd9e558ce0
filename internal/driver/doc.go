// Package driver advances a scan-loop subject one cycle at a time and
// evaluates assertions against what it emits.
//
// ARCHITECTURE:
//
// Single-threaded, synchronous scheduling:
// A Driver owns four assertion containers (queued and permanent, for each of
// the report and cycle domains) and the run counters. Every scheduling call
// (Cycle, Cycles, SkipTime) runs its ticks to completion before returning.
// Reports emitted by the subject during a tick reach the driver through the
// ReportConsumer synchronously, inside the subject's Scan call.
//
// One tick:
//  1. Increment the cycle id, reset the per-cycle report counter.
//  2. Bind the transient list passed by the caller.
//  3. Call Subject.Scan. Each emitted report pops the head of the queued
//     report assertions (one per report) and evaluates every permanent report
//     assertion.
//  4. Advance simulated time by the cycle duration.
//  5. Evaluate the transient list, then all queued cycle assertions (which
//     are then cleared), then all permanent cycle assertions.
//
// Evaluation policy:
// A failed assertion renders its report on the error stream; with debug
// enabled, passing assertions render on the log stream. Every outcome is
// ANDed into the aggregate result. With abort-on-first-error, the first use
// of the error stream invokes the abort hook.
//
// Assertions must not schedule ticks themselves. Doing so from inside an
// evaluation corrupts the per-cycle counters; this is not checked.
//
// Finalize writes the footer and returns the final status as an error.
package driver
