package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInconsistentState is returned when both compute stages reported
// success but no recap document exists for the key. This is fatal for the
// request: substituting an empty document would hide a broken pipeline.
var ErrInconsistentState = errors.New("compute succeeded but no recap document exists")

// Error tags a failure with the lifecycle state it occurred in, so callers
// can map resolution faults, dispatch faults, and store faults to different
// responses.
type Error struct {
	Stage State
	Err   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("recap pipeline failed while %s: %v", strings.ToLower(string(e.Stage)), e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}
