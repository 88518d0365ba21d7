package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/accesskit/pkg/auth"
	"github.com/dmitrymomot/accesskit/pkg/authstate"
	"github.com/dmitrymomot/accesskit/pkg/config"
	"github.com/dmitrymomot/accesskit/pkg/invite"
	"github.com/dmitrymomot/accesskit/pkg/logger"
	"github.com/dmitrymomot/accesskit/pkg/rbac"
	"github.com/dmitrymomot/accesskit/pkg/timeout"
	"github.com/dmitrymomot/accesskit/pkg/totp"
	"github.com/dmitrymomot/accesskit/svc/accounts"
)

const (
	ownerEmail = "ada@example.com"
	guestEmail = "grace@example.com"
	demoPass   = "correct horse battery"
)

type demo struct {
	log        *slog.Logger
	srv        *accounts.Server
	sessionTTL time.Duration
	warnBefore time.Duration
	extend     bool

	ownerID uuid.UUID
	orgID   uuid.UUID
	secret  string
}

func (d *demo) seed(ctx context.Context) error {
	owner, err := d.srv.CreateAccount(ctx, auth.Registration{Email: ownerEmail, Password: demoPass}, accounts.StateActive)
	if err != nil {
		return err
	}
	if _, err := d.srv.CreateAccount(ctx, auth.Registration{Email: guestEmail, Password: demoPass}, accounts.StateActive); err != nil {
		return err
	}
	org, err := d.srv.CreateOrganization(ctx, owner.ID, "Acme")
	if err != nil {
		return err
	}

	enr, err := d.srv.TwoFactor().Setup(ctx, owner.ID, owner.Email)
	if err != nil {
		return err
	}
	code, err := totp.GenerateTOTP(enr.Secret)
	if err != nil {
		return err
	}
	if err := d.srv.TwoFactor().Confirm(ctx, owner.ID, code); err != nil {
		return err
	}
	d.log.InfoContext(ctx, "second factor enrolled",
		logger.IdentityID(owner.ID),
		slog.Int("backup_codes", len(enr.BackupCodes)),
	)

	d.ownerID, d.orgID, d.secret = owner.ID, org.ID, enr.Secret
	return nil
}

// ownerJourney signs the owner in with a second factor and lets the session
// run out under the timeout monitor.
func (d *demo) ownerJourney(ctx context.Context) error {
	machine := authstate.New(d.srv.NewClient(), authstate.WithLogger(d.log))
	<-machine.Start(ctx)
	ctx = authstate.WithMachine(ctx, machine)

	unsubscribe := machine.Subscribe(func(s auth.Session) {
		d.log.InfoContext(ctx, "session changed", logger.SessionStatus(string(s.Status)))
	})
	defer unsubscribe()

	res, err := machine.Login(ctx, ownerEmail, demoPass)
	if err != nil {
		return err
	}
	if res.RequiresTwoFactor {
		code, err := totp.GenerateTOTP(d.secret)
		if err != nil {
			return err
		}
		if _, err := machine.VerifyTwoFactor(ctx, code, res.PendingToken); err != nil {
			return err
		}
	}

	evaluator := rbac.NewEvaluator(machine)
	d.log.InfoContext(ctx, "permissions",
		slog.Bool("owner", evaluator.Can(rbac.RequireOrgRole(auth.OrgRoleOwner))),
		slog.Bool("members.invite", evaluator.Allows(accounts.PermissionInvite)),
		slog.Bool("super_admin", evaluator.HasRole(auth.RoleSuperAdmin)),
	)

	var tcfg timeout.Config
	if err := config.Load(&tcfg); err != nil {
		return err
	}
	tcfg.SessionDuration = d.sessionTTL
	tcfg.WarnBefore = d.warnBefore
	tcfg.CheckInterval = min(tcfg.CheckInterval, time.Second)

	done := make(chan struct{})
	var extended atomic.Bool
	var monitor *timeout.Monitor
	monitor = timeout.New(machine, machine, tcfg,
		timeout.WithLogger(d.log),
		timeout.OnWarning(func(remaining time.Duration) {
			d.log.InfoContext(ctx, "session ending soon", logger.Duration(remaining.Round(time.Millisecond)))
			if d.extend && extended.CompareAndSwap(false, true) {
				go func() {
					if err := monitor.Extend(ctx); err != nil {
						d.log.WarnContext(ctx, "extend failed", logger.Error(err))
					}
				}()
			}
		}),
		timeout.OnTimeout(func() {
			machine.Expire(ctx)
			close(done)
		}),
	)
	monitor.Start(ctx)
	defer monitor.Stop()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	d.log.InfoContext(ctx, "owner journey finished",
		slog.Bool("can_after_timeout", rbac.CanFromContext(ctx, rbac.Requirement{})),
	)
	return nil
}

// guestJourney accepts an invitation issued by the owner.
func (d *demo) guestJourney(ctx context.Context) error {
	token, inv, err := d.srv.CreateInvite(ctx, d.orgID, d.ownerID, guestEmail, auth.OrgRoleMember)
	if err != nil {
		return err
	}
	d.log.InfoContext(ctx, "invite issued", logger.OrganizationID(inv.OrganizationID), logger.Role(string(inv.Role)))

	client := d.srv.NewClient()
	machine := authstate.New(client, authstate.WithLogger(d.log))
	machine.Init(ctx)
	ctx = authstate.WithMachine(ctx, machine)

	resolver := invite.New(token, client, machine, invite.WithLogger(d.log))
	defer resolver.Close()

	if st := resolver.Load(ctx); st.Status != invite.StatusValid {
		return fmt.Errorf("invite not usable: %s", st.Error)
	}
	if _, err := resolver.Accept(ctx); err != nil {
		d.log.InfoContext(ctx, "accept refused", slog.String("message", resolver.State().Error))
	}

	if _, err := machine.Login(ctx, guestEmail, demoPass); err != nil {
		return err
	}
	org, err := resolver.Accept(ctx)
	if err != nil {
		return err
	}
	if err := machine.SwitchOrganization(ctx, org.ID); err != nil {
		return err
	}

	d.log.InfoContext(ctx, "guest joined",
		slog.String("organization", org.Name),
		slog.Bool("projects.create", rbac.AllowsFromContext(ctx, "projects.create")),
		slog.Bool("members.invite", rbac.AllowsFromContext(ctx, accounts.PermissionInvite)),
	)
	machine.Logout(ctx)
	return nil
}
