package dispatch

import (
	"errors"
	"fmt"
)

// Config validation errors.
var (
	ErrStageBinaryEmpty    = errors.New("stage binary path cannot be empty")
	ErrStageTimeoutInvalid = errors.New("stage timeout must be positive")
	ErrRetriesNegative     = errors.New("stage retries cannot be negative")
)

// StageError reports a stage invocation that did not succeed. ExitStatus is
// the process exit code when the stage ran and failed; it is -1 when the
// process never produced one (could not be started, or was cut off by the
// stage timeout).
type StageError struct {
	Stage      Stage
	ExitStatus int
	Diagnostic string
	Err        error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.ExitStatus < 0 {
		return fmt.Sprintf("stage %s did not complete: %v", e.Stage, e.Err)
	}

	if e.Diagnostic != "" {
		return fmt.Sprintf("stage %s exited with status %d: %s", e.Stage, e.ExitStatus, e.Diagnostic)
	}

	return fmt.Sprintf("stage %s exited with status %d", e.Stage, e.ExitStatus)
}

// Unwrap returns the underlying process error.
func (e *StageError) Unwrap() error {
	return e.Err
}
