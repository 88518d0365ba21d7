// Package authstate holds the client-side session state machine.
//
// A Machine is the single owner of the session. Its states are the
// auth.Session variants (loading, unauthenticated, pending_two_factor,
// authenticated) and every change goes through a statemachine transition
// table, so an operation that makes no sense in the current state fails with
// auth.ErrInvalidTransition instead of corrupting the snapshot.
//
// Reading is lock-free: Current returns a copy of an atomically swapped
// snapshot. Writers are serialized and subscribers are called synchronously
// after each transition, in transition order, so by the time a callback runs
// the state it receives is still the current one. A callback may trigger
// another transition (an expiry handler calling Logout, say); it is delivered
// right after the current round, by the goroutine already delivering.
//
//	m := authstate.New(client, authstate.WithCache(cache), authstate.WithLogger(log))
//	unsubscribe := m.Subscribe(func(s auth.Session) { render(s) })
//	defer unsubscribe()
//	<-m.Start(ctx)
//
//	res, err := m.Login(ctx, email, password)
//	if err == nil && res.RequiresTwoFactor {
//	    _, err = m.VerifyTwoFactor(ctx, code, res.PendingToken)
//	}
//
// Install the machine in a context with WithMachine; MustFromContext panics
// when a component runs without one.
package authstate
