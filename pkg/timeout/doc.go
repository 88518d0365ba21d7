// Package timeout watches the authenticated session and warns before it lapses.
//
// A Monitor subscribes to a session source (normally *authstate.Machine),
// recomputes the remaining lifetime on every tick and invokes OnWarning once
// the remaining time drops to Config.WarnBefore, then OnTimeout once it reaches
// zero. Each callback fires at most once per session epoch. An epoch begins when
// the session becomes authenticated, when Extend succeeds, or when the source
// reports a later expiry.
//
// The server-reported expiry is preferred. Without one the monitor counts
// Config.SessionDuration from the start of the epoch.
//
// Usage:
//
//	mon := timeout.New(machine, machine, cfg,
//	    timeout.OnWarning(func(left time.Duration) { showBanner(left) }),
//	    timeout.OnTimeout(func() { _ = machine.Expire(ctx) }),
//	)
//	mon.Start(ctx)
//	defer mon.Stop()
//
// Callbacks run on the monitor goroutine, never inside the source's
// notification, so they may drive the source directly.
package timeout
