package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidState      = errors.New("statemachine: initial state cannot be nil")
	ErrInvalidTransition = errors.New("statemachine: from, to and event are required")
	ErrInvalidEvent      = errors.New("statemachine: event cannot be nil")
)

// NoTransitionError is returned when no transition is defined for the
// current state and event.
type NoTransitionError struct {
	State string
	Event string
}

func (e *NoTransitionError) Error() string {
	return fmt.Sprintf("statemachine: no transition from %q on %q", e.State, e.Event)
}

// RejectedError is returned when transitions exist but guards rejected all of them.
type RejectedError struct {
	State string
	Event string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("statemachine: transition from %q on %q rejected by guards", e.State, e.Event)
}
