package driver

import (
	"fmt"
	"time"
)

// DefaultMaxCycles bounds the ticks a single scheduling call may run.
// Use WithMaxCycles to change it.
const DefaultMaxCycles = 1_000_000

// DefaultCycleCount is the count Cycles uses when asked for 0 cycles.
const DefaultCycleCount = 5

// checkCycleBudget validates a tick count against the per-call limit.
func checkCycleBudget(requested int64, limit int) error {
	if requested > int64(limit) {
		return fmt.Errorf("%d cycles requested, limit is %d", requested, limit)
	}
	return nil
}

// cyclesToSkip returns how many ticks of length step are needed before
// at least dt has elapsed.
func cyclesToSkip(dt, step time.Duration) int64 {
	if dt <= 0 {
		return 0
	}
	n := int64(dt / step)
	if dt%step != 0 {
		n++
	}
	return n
}
