package device

import (
	"fmt"

	"github.com/roach88/scancheck/internal/hid"
)

// KeyState is the simulated physical state of one matrix position.
type KeyState uint8

const (
	// NotPressed leaves the key up.
	NotPressed KeyState = iota
	// Pressed holds the key down until changed.
	Pressed
	// Tap holds the key down for exactly one scan, then releases it.
	Tap
)

// String returns the state name.
func (s KeyState) String() string {
	switch s {
	case NotPressed:
		return "not_pressed"
	case Pressed:
		return "pressed"
	case Tap:
		return "tap"
	default:
		return fmt.Sprintf("KeyState(%d)", uint8(s))
	}
}

// ReportSink receives every report a scan emits.
type ReportSink interface {
	ProcessReport(r hid.Report)
}

// Keyboard is a virtual matrix keyboard.
type Keyboard struct {
	rows   uint8
	cols   uint8
	keymap [][]hid.Keycode
	states [][]KeyState

	sink  ReportSink
	last  hid.Report
	scans uint64
}

// NewKeyboard creates a keyboard with the given dimensions.
// Keymap rows or columns that are missing map to hid.KeyNone; entries
// outside the matrix or past the last modifier usage are rejected.
func NewKeyboard(rows, cols uint8, keymap [][]hid.Keycode) (*Keyboard, error) {
	if rows == 0 || cols == 0 {
		return nil, fmt.Errorf("matrix must have at least one row and column (got %dx%d)", rows, cols)
	}
	if len(keymap) > int(rows) {
		return nil, fmt.Errorf("keymap has %d rows, matrix has %d", len(keymap), rows)
	}

	k := &Keyboard{
		rows:   rows,
		cols:   cols,
		keymap: make([][]hid.Keycode, rows),
		states: make([][]KeyState, rows),
	}
	for r := range k.keymap {
		k.keymap[r] = make([]hid.Keycode, cols)
		k.states[r] = make([]KeyState, cols)
	}
	for r, row := range keymap {
		if len(row) > int(cols) {
			return nil, fmt.Errorf("keymap row %d has %d columns, matrix has %d", r, len(row), cols)
		}
		for c, code := range row {
			if !code.Valid() {
				return nil, fmt.Errorf("keymap (%d, %d): usage %s has no place in a boot report", r, c, code)
			}
		}
		copy(k.keymap[r], row)
	}

	return k, nil
}

// SetReportSink registers the consumer of emitted reports.
func (k *Keyboard) SetReportSink(s ReportSink) {
	k.sink = s
}

// Dimensions returns the matrix size.
func (k *Keyboard) Dimensions() (rows, cols uint8) {
	return k.rows, k.cols
}

// SetKeystate changes the simulated state of one matrix position.
func (k *Keyboard) SetKeystate(row, col uint8, s KeyState) error {
	if err := k.checkPosition(row, col); err != nil {
		return err
	}
	k.states[row][col] = s
	return nil
}

// Keystate returns the current simulated state of one matrix position.
func (k *Keyboard) Keystate(row, col uint8) KeyState {
	if k.checkPosition(row, col) != nil {
		return NotPressed
	}
	return k.states[row][col]
}

// Keycode returns the keymap entry for a position.
func (k *Keyboard) Keycode(row, col uint8) hid.Keycode {
	if k.checkPosition(row, col) != nil {
		return hid.KeyNone
	}
	return k.keymap[row][col]
}

// Scans returns the number of completed scans.
func (k *Keyboard) Scans() uint64 {
	return k.scans
}

// Reset releases every key and forgets the last sent report.
func (k *Keyboard) Reset() {
	for r := range k.states {
		for c := range k.states[r] {
			k.states[r][c] = NotPressed
		}
	}
	k.last = hid.Report{}
	k.scans = 0
}

// Scan runs one loop iteration.
func (k *Keyboard) Scan() {
	var report hid.Report
	for r := range k.states {
		for c, s := range k.states[r] {
			if s == NotPressed {
				continue
			}
			report.Press(k.keymap[r][c])
			if s == Tap {
				k.states[r][c] = NotPressed
			}
		}
	}

	k.scans++

	if report == k.last {
		return
	}
	k.last = report
	if k.sink != nil {
		k.sink.ProcessReport(report)
	}
}

func (k *Keyboard) checkPosition(row, col uint8) error {
	if row >= k.rows || col >= k.cols {
		return fmt.Errorf("position (%d, %d) outside %dx%d matrix", row, col, k.rows, k.cols)
	}
	return nil
}
