package riot

import (
	"errors"
	"fmt"
)

// ErrMissingAPIKey is returned before any I/O when no service credential is
// configured. This is an operator fault, never retried.
var ErrMissingAPIKey = errors.New("riot api key is not configured")

// UpstreamError reports a failed call to the Riot API.
//
// Status carries the HTTP status for remote rejections and is zero for
// transport-level faults (timeout, DNS, connection reset), so the two classes
// stay distinguishable. Callers classify with errors.As.
type UpstreamError struct {
	Status int
	Err    error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("riot api request failed: upstream status %d", e.Status)
	}

	return fmt.Sprintf("riot api request failed: %v", e.Err)
}

// Unwrap returns the underlying transport error, if any, enabling standard
// errors.Is() and errors.As() behavior.
func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Transport reports whether the failure happened below HTTP (no status was
// ever received).
func (e *UpstreamError) Transport() bool {
	return e.Status == 0
}
