// Package pipeline orchestrates a recap request end to end: resolve the
// player handle to a stable identifier, dispatch the two compute stages,
// then fetch the stored document back for the caller.
//
// A request moves through RESOLVING → DISPATCHING → FETCHING → DONE. Any
// working state may fail; terminal states are immutable.
package pipeline

import (
	"errors"
	"fmt"
)

// State is one phase of a recap request's lifecycle.
type State string

const (
	StateResolving   State = "RESOLVING"
	StateDispatching State = "DISPATCHING"
	StateFetching    State = "FETCHING"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)

// IsTerminal reports whether a request in this state is finished.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// ErrInvalidTransition indicates a lifecycle transition outside the order
// above.
var ErrInvalidTransition = errors.New("invalid state transition")

// validNext maps each working state to the states it may advance to.
var validNext = map[State]map[State]bool{
	StateResolving:   {StateDispatching: true, StateFailed: true},
	StateDispatching: {StateFetching: true, StateFailed: true},
	StateFetching:    {StateDone: true, StateFailed: true},
}

// ValidateTransition validates a single lifecycle transition.
//
// Valid transitions:
//   - RESOLVING → {DISPATCHING, FAILED}
//   - DISPATCHING → {FETCHING, FAILED}
//   - FETCHING → {DONE, FAILED}
//
// Terminal states (DONE, FAILED) cannot transition anywhere, and the
// lifecycle never moves backwards.
func ValidateTransition(from, to State) error {
	if from.IsTerminal() {
		return fmt.Errorf("%w: %s → %s (terminal states are immutable)", ErrInvalidTransition, from, to)
	}

	if !validNext[from][to] {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, from, to)
	}

	return nil
}

// lifecycle tracks one request's state, validating every advance.
type lifecycle struct {
	state State
}

func newLifecycle() *lifecycle {
	return &lifecycle{state: StateResolving}
}

func (l *lifecycle) advance(to State) error {
	if err := ValidateTransition(l.state, to); err != nil {
		return err
	}

	l.state = to

	return nil
}
