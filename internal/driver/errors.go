package driver

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes run failures.
type ErrorCode string

const (
	// ErrCodeAssertionFailed indicates at least one assertion evaluated false.
	ErrCodeAssertionFailed ErrorCode = "ASSERTION_FAILED"

	// ErrCodeQueueUnderflow indicates a report arrived with nothing queued
	// while strict mode was on.
	ErrCodeQueueUnderflow ErrorCode = "QUEUE_UNDERFLOW"

	// ErrCodeConfiguration indicates an unusable scheduling request.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeLeftoverQueue indicates queued report assertions were never
	// consumed.
	ErrCodeLeftoverQueue ErrorCode = "LEFTOVER_QUEUE"

	// ErrCodeAborted indicates the run stopped on its first error.
	ErrCodeAborted ErrorCode = "ABORTED"
)

// Error is a failure detected by the driver.
type Error struct {
	Code    ErrorCode
	Message string

	// Cycle is the cycle id current when the failure was detected.
	Cycle uint64

	// Details holds per-category counts for summary errors.
	Details map[string]string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cycle > 0 {
		return fmt.Sprintf("%s: %s (cycle=%d)", e.Code, e.Message, e.Cycle)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrAborted is returned by scheduling calls once the run has aborted.
var ErrAborted = &Error{Code: ErrCodeAborted, Message: "run aborted on first error"}

// ErrNoMatrix is returned by input injection when the subject has no
// input matrix.
var ErrNoMatrix = errors.New("subject does not expose an input matrix")

func hasCode(err error, code ErrorCode) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// IsConfigurationError reports whether err is a configuration error.
// Uses errors.As so wrapped and joined errors match.
func IsConfigurationError(err error) bool {
	if hasCode(err, ErrCodeConfiguration) {
		return true
	}
	return anyJoined(err, ErrCodeConfiguration)
}

// IsLeftoverQueueError reports whether err includes a leftover-queue failure.
func IsLeftoverQueueError(err error) bool {
	if hasCode(err, ErrCodeLeftoverQueue) {
		return true
	}
	return anyJoined(err, ErrCodeLeftoverQueue)
}

// IsAssertionFailure reports whether err includes failed assertions.
func IsAssertionFailure(err error) bool {
	if hasCode(err, ErrCodeAssertionFailed) {
		return true
	}
	return anyJoined(err, ErrCodeAssertionFailed)
}

// anyJoined inspects every member of an errors.Join result. errors.As stops
// at the first *Error, so later members need an explicit walk.
func anyJoined(err error, code ErrorCode) bool {
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		return false
	}
	for _, e := range joined.Unwrap() {
		if hasCode(e, code) {
			return true
		}
	}
	return false
}
