package driver

import (
	"fmt"

	"github.com/roach88/scancheck/internal/device"
)

// KeyDown marks the key at (row, col) as held.
func (d *Driver) KeyDown(row, col uint8) error {
	d.sink.Logf("+ Activating key (%d, %d)\n", row, col)
	return d.setKeystate(row, col, device.Pressed)
}

// KeyUp releases the key at (row, col).
func (d *Driver) KeyUp(row, col uint8) error {
	d.sink.Logf("- Releasing key (%d, %d)\n", row, col)
	return d.setKeystate(row, col, device.NotPressed)
}

// TapKey presses the key at (row, col) for exactly one scan.
func (d *Driver) TapKey(row, col uint8) error {
	d.sink.Logf("+- Tapping key (%d, %d)\n", row, col)
	return d.setKeystate(row, col, device.Tap)
}

// ClearAllKeys releases every key of the matrix.
func (d *Driver) ClearAllKeys() error {
	m, ok := d.subject.(Matrix)
	if !ok {
		return ErrNoMatrix
	}
	d.sink.Logf("- Clearing all keys\n")
	rows, cols := m.Dimensions()
	for r := uint8(0); r < rows; r++ {
		for c := uint8(0); c < cols; c++ {
			if err := m.SetKeystate(r, c, device.NotPressed); err != nil {
				return fmt.Errorf("clear key (%d, %d): %w", r, c, err)
			}
		}
	}
	return nil
}

// InitKeyboard clears all keys and resets the subject when it supports it.
func (d *Driver) InitKeyboard() error {
	d.sink.Logf("Initializing keyboard\n")
	if err := d.ClearAllKeys(); err != nil {
		return err
	}
	if r, ok := d.subject.(Resetter); ok {
		r.Reset()
	}
	return nil
}

func (d *Driver) setKeystate(row, col uint8, s device.KeyState) error {
	m, ok := d.subject.(Matrix)
	if !ok {
		return ErrNoMatrix
	}
	if err := m.SetKeystate(row, col, s); err != nil {
		return d.configurationError(fmt.Sprintf("set key (%d, %d) %s: %v", row, col, s, err))
	}
	return nil
}
