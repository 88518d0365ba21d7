// Package statemachine provides a small generic finite state machine.
//
// States and events are any comparable types with a Name method, usually
// string-backed enums. A machine is built from a transition table, optionally
// with guards (accept or reject at runtime) and actions (side effects that can
// abort the transition). All access is guarded by a RWMutex.
//
//	m := statemachine.MustNew[Status, Event](Loading,
//	    statemachine.WithTransition(Loading, Ready, Loaded),
//	    statemachine.WithTransition(Ready, Loading, Reload,
//	        statemachine.WithGuard(func(ctx context.Context, from Status, ev Event, data any) bool {
//	            return data != nil
//	        })),
//	)
//	next, err := m.Fire(ctx, Loaded, nil)
//
// Fire reports a *TransitionError that matches ErrNoTransition for an
// undeclared transition and ErrRejected for one blocked by guards.
package statemachine
