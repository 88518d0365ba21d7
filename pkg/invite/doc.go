// Package invite resolves an organization invitation token into one of a
// fixed set of statuses and lets an authenticated user accept it.
//
// A Resolver starts in StatusLoading. Load fetches the invite once and moves
// to a terminal status (valid, expired, invalid, already_used or
// already_member); only Retry fetches again. A valid invite whose ExpiresAt
// has passed is reported as expired by State without another round trip.
//
//	r := invite.New(token, client, machine, invite.WithLogger(log))
//	defer r.Close()
//
//	switch st := r.Load(ctx); st.Status {
//	case invite.StatusValid:
//	    if !machine.Current().IsAuthenticated() {
//	        redirectToLogin(r.Token())
//	        return
//	    }
//	    org, err := r.Accept(ctx)
//	    if err != nil {
//	        flash(r.State().Error)
//	        return
//	    }
//	    _ = machine.SwitchOrganization(ctx, org.ID)
//	default:
//	    flash(st.Error)
//	}
//
// Accept refuses without a server call when nobody is signed in and returns
// ErrAcceptInFlight while another Accept is running. Error strings in State
// are curated; raw transport errors and the token itself never appear there.
package invite
