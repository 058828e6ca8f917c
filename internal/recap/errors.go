package recap

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no recap document exists for the requested
// player and period.
var ErrNotFound = errors.New("recap not found")

// DeserializationError reports a recap document that exists but cannot be
// decoded. It is kept distinct from ErrNotFound because the two mean very
// different things after a successful compute: absence is an inconsistency,
// corruption is a storage fault.
type DeserializationError struct {
	Key string
	Err error
}

// Error implements the error interface.
func (e *DeserializationError) Error() string {
	return fmt.Sprintf("recap document %s is not decodable: %v", e.Key, e.Err)
}

// Unwrap returns the underlying decode error.
func (e *DeserializationError) Unwrap() error {
	return e.Err
}
