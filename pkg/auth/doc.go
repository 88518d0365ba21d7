// Package auth defines the shared vocabulary of the access core: identities,
// organization memberships, the session tagged union, invitation payloads,
// the server collaborator contract and the error taxonomy.
//
// The package holds no behaviour beyond small value helpers. The components
// built on top of it live in sibling packages:
//
//   - authstate: the session state machine and subscription hub
//   - timeout: the sliding session timeout monitor
//   - rbac: the permission evaluator
//   - twofactor: the server-side second-factor protocol
//   - invite: the invitation lifecycle resolver
//   - audit: the security event trail
//
// # Sessions
//
// Session is a tagged union. Status names the active variant and only the
// fields documented for that variant are populated. Use the constructors
// (LoadingSession, UnauthenticatedSession, PendingSession, AuthenticatedSession)
// instead of building values by hand.
//
// # Error Handling
//
// Every failure the core reports is one of the sentinels in errors.go, possibly
// wrapped. Inspect with errors.Is, bucket with KindOf, and show users only
// Message(err):
//
//	res, err := machine.Login(ctx, email, password)
//	if err != nil {
//	    if errors.Is(err, auth.ErrEmailNotVerified) {
//	        // offer "resend verification"
//	    }
//	    flash(auth.Message(err))
//	}
//
// Transport failures must be wrapped with Transport so they classify as
// KindTransport and surface the generic network message.
package auth
