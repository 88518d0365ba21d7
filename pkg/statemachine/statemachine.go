package statemachine

import "context"

// Named is implemented by state and event types. The name is used in errors and logs.
type Named interface {
	comparable
	Name() string
}

// Action executes side effects during a transition. Returning an error prevents the transition.
type Action[S, E Named] func(ctx context.Context, from, to S, event E, data any) error

// Guard evaluates whether a transition should be allowed based on runtime conditions.
type Guard[S, E Named] func(ctx context.Context, from S, event E, data any) bool

// Transition defines a state change triggered by an event, with optional guards and actions.
type Transition[S, E Named] struct {
	From    S
	To      S
	Event   E
	Guards  []Guard[S, E]  // all must pass
	Actions []Action[S, E] // executed in order before the state changes
}

// StringState is a plain string state for simple tables and tests.
type StringState string

func (s StringState) Name() string { return string(s) }

// StringEvent is a plain string event for simple tables and tests.
type StringEvent string

func (e StringEvent) Name() string { return string(e) }
