// Package audit keeps a trail of security-relevant events: sign-ins and their
// failures, second-factor checks, invitation use and account changes.
//
// Events carry identifiers and an error code, never passwords, codes, tokens
// or raw error text. Personal data that helps correlate attempts, such as the
// email of a failed sign-in, goes through HashIdentifier first.
//
//	store := audit.NewAsyncStore(audit.NewMemoryStore(), audit.AsyncOptions{}, nil)
//	defer store.Close(ctx)
//	trail := audit.New(store, audit.WithLogger(log))
//
//	trail.Failure(ctx, audit.ActionLogin, auth.ErrInvalidCredentials,
//	    audit.WithMetadata("email", audit.HashIdentifier(email)))
//
// A failing store is logged and never fails the audited operation.
package audit
