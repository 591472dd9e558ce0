// Package harness runs keyboard scan test scenarios.
//
// A scenario describes a simulated key matrix, drives it through the
// scan-loop driver step by step and checks the recorded run log
// afterwards. Every run gets a fresh in-memory run log (see package store);
// reports and assertion outcomes are recorded as the driver produces them
// and merged into an ordered trace for golden comparison.
//
// # Scenario Format
//
// Scenarios are YAML files validated against an embedded CUE schema:
//
//	name: tap_a
//	description: "Tapping A reports A once, then an empty report"
//	run_id: run-1
//	config:
//	  cycle_duration: 10ms
//	keyboard:
//	  rows: 1
//	  cols: 2
//	  keymap: [[A, B]]
//	steps:
//	  - tap: [0, 0]
//	  - queue_report:
//	      - type: keycode_active
//	        key: A
//	      - type: report_empty
//	  - cycles:
//	      n: 3
//	checks:
//	  - type: report_count
//	    count: 2
//
// # Steps
//
// Each step sets exactly one action:
//
//   - press, release, tap: change the key at [row, col]
//   - clear: release every key
//   - init: release every key and reset the keyboard's last report
//   - queue_report, permanent_report: register report assertions
//   - queue_cycle, permanent_cycle: register cycle assertions
//   - cycle: run one tick, then evaluate stop
//   - cycles: run n ticks with each and stop lists
//   - skip: run ticks until time has elapsed, then evaluate stop
//
// # Checks
//
// Checks query the run log after the driver finalized:
//
//   - report_count, cycle_count: totals
//   - reports_in_cycle: reports processed during one tick
//   - key_reported: some report had the key active
//   - failed_assertions: number of failed evaluations
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/tap_a.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(ctx, scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
