package statemachine

import (
	"errors"
	"fmt"
)

// Option configures a machine during construction.
type Option[S, E Named] func(*Machine[S, E]) error

// TransitionOption attaches guards and actions to a single transition.
type TransitionOption[S, E Named] func(*Transition[S, E])

// New creates a machine in the given initial state.
func New[S, E Named](initial S, opts ...Option[S, E]) (*Machine[S, E], error) {
	var zero S
	if initial == zero {
		return nil, ErrInvalidInitialState
	}

	m := newMachine[S, E](initial)
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// MustNew is like New but panics on a malformed table.
func MustNew[S, E Named](initial S, opts ...Option[S, E]) *Machine[S, E] {
	m, err := New[S, E](initial, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return m
}

// WithTransition adds a single transition.
func WithTransition[S, E Named](from, to S, event E, opts ...TransitionOption[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) error {
		t := Transition[S, E]{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&t)
		}
		return m.AddTransition(t)
	}
}

// WithTransitions adds a whole table at once.
func WithTransitions[S, E Named](table []Transition[S, E]) Option[S, E] {
	return func(m *Machine[S, E]) error {
		for i, t := range table {
			if err := m.AddTransition(t); err != nil {
				return errors.Join(fmt.Errorf("transition[%d] %s->%s on %s", i, t.From.Name(), t.To.Name(), t.Event.Name()), err)
			}
		}
		return nil
	}
}

// WithGuard adds guards to a transition.
func WithGuard[S, E Named](guards ...Guard[S, E]) TransitionOption[S, E] {
	return func(t *Transition[S, E]) {
		for _, g := range guards {
			if g != nil {
				t.Guards = append(t.Guards, g)
			}
		}
	}
}

// WithAction adds actions to a transition.
func WithAction[S, E Named](actions ...Action[S, E]) TransitionOption[S, E] {
	return func(t *Transition[S, E]) {
		for _, a := range actions {
			if a != nil {
				t.Actions = append(t.Actions, a)
			}
		}
	}
}
