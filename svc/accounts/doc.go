// Package accounts is an in-memory identity backend that implements
// auth.Client. It holds accounts with bcrypt password hashes, organizations
// and memberships, sliding sessions and single-use invitations, and delegates
// the second factor to twofactor.Service.
//
// A Server is shared state; every browser gets its own Client, which carries
// the session id the way a cookie would:
//
//	srv := accounts.New(twoFactor, cfg, accounts.WithLogger(log))
//	owner, _ := srv.CreateAccount(ctx, auth.Registration{Email: "ada@example.com", Password: pw}, accounts.StateActive)
//	org, _ := srv.CreateOrganization(ctx, owner.ID, "Acme")
//
//	machine := authstate.New(srv.NewClient())
//	machine.Init(ctx)
//
// Sign-in checks the password first and only then the account state, so
// locked and unverified accounts are reported only to someone who knows the
// password. Invitation tokens are stored as SHA-256 hashes and consumed under
// the server lock, which makes acceptance single use.
//
// WithAudit records sign-ins, second-factor checks, membership changes and
// invitation use to an audit.Trail.
package accounts
