package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidTransition   = errors.New("statemachine: transition needs from, to and event")
	ErrInvalidEvent        = errors.New("statemachine: empty event")
	ErrInvalidInitialState = errors.New("statemachine: empty initial state")

	// ErrNoTransition and ErrRejected are matched through *TransitionError.
	ErrNoTransition = errors.New("statemachine: no transition")
	ErrRejected     = errors.New("statemachine: rejected by guards")
)

// TransitionError reports an event that could not move the machine.
type TransitionError struct {
	State    string
	Event    string
	Rejected bool // a transition exists but every guard refused it
}

func (e *TransitionError) Error() string {
	if e.Rejected {
		return fmt.Sprintf("statemachine: %q rejected in state %q", e.Event, e.State)
	}
	return fmt.Sprintf("statemachine: no transition for %q in state %q", e.Event, e.State)
}

func (e *TransitionError) Unwrap() error {
	if e.Rejected {
		return ErrRejected
	}
	return ErrNoTransition
}

func IsNoTransitionAvailableError(err error) bool { return errors.Is(err, ErrNoTransition) }

func IsTransitionRejectedError(err error) bool { return errors.Is(err, ErrRejected) }
