package testutil

import (
	"github.com/roach88/scancheck/internal/device"
	"github.com/roach88/scancheck/internal/hid"
)

// ScriptedSubject is a scan-loop double that emits predetermined reports.
//
// Scan n (1-based) emits every report listed under n, in order. Scans with
// no entry emit nothing.
type ScriptedSubject struct {
	script map[uint64][]hid.Report
	sink   device.ReportSink
	scans  uint64

	// OnScan, if set, runs at the start of every scan with the scan number.
	OnScan func(n uint64)
}

// NewScriptedSubject creates a subject from a scan-number keyed script.
func NewScriptedSubject(script map[uint64][]hid.Report) *ScriptedSubject {
	if script == nil {
		script = make(map[uint64][]hid.Report)
	}
	return &ScriptedSubject{script: script}
}

// Emit schedules reports for scan n.
func (s *ScriptedSubject) Emit(n uint64, reports ...hid.Report) *ScriptedSubject {
	s.script[n] = append(s.script[n], reports...)
	return s
}

// SetReportSink registers the receiver of emitted reports.
func (s *ScriptedSubject) SetReportSink(sink device.ReportSink) {
	s.sink = sink
}

// Scan runs one scripted iteration.
func (s *ScriptedSubject) Scan() {
	s.scans++
	if s.OnScan != nil {
		s.OnScan(s.scans)
	}
	if s.sink == nil {
		return
	}
	for _, r := range s.script[s.scans] {
		s.sink.ProcessReport(r)
	}
}

// Scans returns how many times Scan ran.
func (s *ScriptedSubject) Scans() uint64 {
	return s.scans
}
