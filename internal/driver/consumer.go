package driver

import (
	"github.com/roach88/scancheck/internal/device"
	"github.com/roach88/scancheck/internal/hid"
)

// Subject is the scan-loop under test.
type Subject interface {
	// Scan runs one iteration of the scan loop. Reports are emitted
	// synchronously to the registered sink.
	Scan()
	SetReportSink(s device.ReportSink)
}

// Matrix is implemented by subjects that accept injected key states.
type Matrix interface {
	SetKeystate(row, col uint8, s device.KeyState) error
	Dimensions() (rows, cols uint8)
}

// Resetter is implemented by subjects that can return to their initial
// state.
type Resetter interface {
	Reset()
}

// ReportConsumer forwards reports emitted by the subject to the driver.
// It neither copies nor buffers.
type ReportConsumer struct {
	d *Driver
}

var _ device.ReportSink = (*ReportConsumer)(nil)

// ProcessReport implements device.ReportSink.
func (c *ReportConsumer) ProcessReport(r hid.Report) {
	c.d.processReport(r)
}
