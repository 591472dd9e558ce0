// Package device simulates the keyboard a scan loop runs on.
//
// A Keyboard owns a virtual key matrix and a keymap. Each call to Scan is
// one firmware loop iteration: the matrix is read, a report is composed, and
// the report is delivered to the registered ReportSink only when it differs
// from the last one delivered. Delivery is synchronous, so every report of a
// scan reaches the sink before Scan returns.
package device
