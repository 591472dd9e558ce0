package driver

import "time"

// Clock tracks the cycle id and the simulated elapsed time.
//
// The cycle id is incremented exactly once per tick and never reused.
// Elapsed time advances by a fixed step per tick; it is never measured.
type Clock struct {
	cycle   uint64
	elapsed time.Duration
	step    time.Duration
}

// NewClock creates a clock at cycle 0, time 0.
func NewClock(step time.Duration) *Clock {
	return &Clock{step: step}
}

// Next starts a new cycle and returns its id. The first id is 1.
func (c *Clock) Next() uint64 {
	c.cycle++
	return c.cycle
}

// Advance adds one step to the elapsed time.
func (c *Clock) Advance() {
	c.elapsed += c.step
}

// Cycle returns the current cycle id.
func (c *Clock) Cycle() uint64 {
	return c.cycle
}

// Elapsed returns the simulated time.
func (c *Clock) Elapsed() time.Duration {
	return c.elapsed
}

// Step returns the per-cycle duration.
func (c *Clock) Step() time.Duration {
	return c.step
}
