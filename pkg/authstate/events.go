package authstate

import (
	"context"

	"github.com/dmitrymomot/accesskit/pkg/auth"
	"github.com/dmitrymomot/accesskit/pkg/statemachine"
)

// Event names a session transition.
type Event string

func (e Event) Name() string { return string(e) }

const (
	EventRestored            Event = "restored"
	EventAnonymous           Event = "anonymous"
	EventInitFailed          Event = "init_failed"
	EventChallenged          Event = "challenged"
	EventLoggedIn            Event = "logged_in"
	EventRegistered          Event = "registered"
	EventTwoFactorVerified   Event = "two_factor_verified"
	EventLoggedOut           Event = "logged_out"
	EventExpired             Event = "expired"
	EventRefreshed           Event = "refreshed"
	EventOrganizationChanged Event = "organization_changed"
)

type (
	fsm        = statemachine.Machine[auth.Status, Event]
	transition = statemachine.Transition[auth.Status, Event]
	guard      = statemachine.Guard[auth.Status, Event]
	action     = statemachine.Action[auth.Status, Event]
)

// change is the payload fired with every event.
type change struct {
	next auth.Session
	// pendingToken is the challenge the result belongs to (two_factor_verified only).
	pendingToken string
	// identity is the identity the result belongs to (refreshed, organization_changed).
	identity *auth.Identity
}

func newFSM(m *Machine) *fsm {
	const (
		loading         = auth.StatusLoading
		unauthenticated = auth.StatusUnauthenticated
		pending         = auth.StatusPendingTwoFactor
		authenticated   = auth.StatusAuthenticated
	)

	publish := []action{m.publish}
	samePending := []guard{m.samePendingToken}
	sameIdentity := []guard{m.sameIdentity}

	return statemachine.MustNew(loading, statemachine.WithTransitions([]transition{
		{From: loading, To: authenticated, Event: EventRestored, Actions: publish},
		{From: loading, To: unauthenticated, Event: EventAnonymous, Actions: publish},
		{From: loading, To: unauthenticated, Event: EventInitFailed, Actions: publish},
		{From: loading, To: authenticated, Event: EventLoggedIn, Actions: publish},
		{From: loading, To: pending, Event: EventChallenged, Actions: publish},
		{From: loading, To: authenticated, Event: EventRegistered, Actions: publish},
		{From: loading, To: unauthenticated, Event: EventLoggedOut, Actions: publish},

		{From: unauthenticated, To: authenticated, Event: EventLoggedIn, Actions: publish},
		{From: unauthenticated, To: pending, Event: EventChallenged, Actions: publish},
		{From: unauthenticated, To: authenticated, Event: EventRegistered, Actions: publish},
		{From: unauthenticated, To: unauthenticated, Event: EventLoggedOut, Actions: publish},

		{From: pending, To: authenticated, Event: EventTwoFactorVerified, Guards: samePending, Actions: publish},
		{From: pending, To: authenticated, Event: EventLoggedIn, Actions: publish},
		{From: pending, To: pending, Event: EventChallenged, Actions: publish},
		{From: pending, To: unauthenticated, Event: EventLoggedOut, Actions: publish},

		{From: authenticated, To: unauthenticated, Event: EventLoggedOut, Actions: publish},
		{From: authenticated, To: unauthenticated, Event: EventExpired, Actions: publish},
		{From: authenticated, To: authenticated, Event: EventRefreshed, Guards: sameIdentity, Actions: publish},
		{From: authenticated, To: authenticated, Event: EventOrganizationChanged, Guards: sameIdentity, Actions: publish},
	}))
}

// samePendingToken rejects a verification result that belongs to an older challenge.
func (m *Machine) samePendingToken(_ context.Context, _ auth.Status, _ Event, data any) bool {
	c, ok := data.(change)
	return ok && c.pendingToken != "" && m.latest().PendingToken == c.pendingToken
}

// sameIdentity rejects a result fetched for an identity that is no longer signed in.
func (m *Machine) sameIdentity(_ context.Context, _ auth.Status, _ Event, data any) bool {
	c, ok := data.(change)
	cur := m.latest()
	return ok && c.identity != nil && cur.Identity != nil && cur.Identity.ID == c.identity.ID
}
