package accounts

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrymomot/accesskit/pkg/audit"
	"github.com/dmitrymomot/accesskit/pkg/auth"
	"github.com/dmitrymomot/accesskit/pkg/invite"
	"github.com/dmitrymomot/accesskit/pkg/logger"
)

var _ auth.Client = (*Client)(nil)

// Client is one browser talking to a Server. It holds the session id the way
// a cookie jar would; the id never leaves this type.
type Client struct {
	srv *Server

	mu  sync.Mutex
	sid string
}

func (c *Client) session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sid
}

func (c *Client) setSession(sid string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sid = sid
}

// CurrentSession returns nil, nil when no live session is held.
func (c *Client) CurrentSession(_ context.Context) (*auth.SessionInfo, error) {
	sid := c.session()
	s := c.srv

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.lookup(sid)
	if !ok {
		return nil, nil
	}
	info := s.info(sess)
	return &info, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (auth.LoginResponse, error) {
	if strings.TrimSpace(email) == "" {
		return auth.LoginResponse{}, auth.ErrEmptyEmail
	}
	if password == "" {
		return auth.LoginResponse{}, auth.ErrEmptyPassword
	}

	identity, err := c.srv.authenticate(email, password)
	if err != nil {
		c.srv.logger.InfoContext(ctx, "login rejected", logger.Error(err))
		c.srv.audit.Failure(ctx, audit.ActionLogin, err, audit.WithMetadata("email", audit.HashIdentifier(email)))
		return auth.LoginResponse{}, err
	}

	if tf := c.srv.twoFactor; tf != nil {
		enabled, err := tf.IsEnabled(ctx, identity.ID)
		if err != nil {
			return auth.LoginResponse{}, err
		}
		if enabled {
			token, _, err := tf.BeginChallenge(ctx, identity.ID)
			if err != nil {
				return auth.LoginResponse{}, err
			}
			c.srv.logger.InfoContext(ctx, "second factor required", logger.IdentityID(identity.ID))
			c.srv.audit.Success(ctx, audit.ActionLogin,
				audit.WithIdentity(identity.ID),
				audit.WithMetadata("second_factor", "required"),
			)
			return auth.LoginResponse{RequiresTwoFactor: true, PendingToken: token}, nil
		}
	}

	sid, info, err := c.srv.startSession(ctx, identity.ID)
	if err != nil {
		return auth.LoginResponse{}, err
	}
	c.setSession(sid)
	c.srv.audit.Success(ctx, audit.ActionLogin, audit.WithIdentity(identity.ID))
	return auth.LoginResponse{Session: &info}, nil
}

func (c *Client) VerifyTwoFactor(ctx context.Context, code, pendingToken string) (auth.SessionInfo, error) {
	tf := c.srv.twoFactor
	if tf == nil {
		return auth.SessionInfo{}, auth.ErrInvalidPendingToken
	}

	identityID, err := tf.VerifyChallenge(ctx, pendingToken, code)
	if err != nil {
		c.srv.audit.Failure(ctx, audit.ActionTwoFactor, err, audit.WithIdentity(identityID))
		return auth.SessionInfo{}, err
	}
	// The account may have been locked while the challenge was open.
	if _, err := c.srv.signInAllowed(identityID); err != nil {
		c.srv.audit.Failure(ctx, audit.ActionTwoFactor, err, audit.WithIdentity(identityID))
		return auth.SessionInfo{}, err
	}

	sid, info, err := c.srv.startSession(ctx, identityID)
	if err != nil {
		return auth.SessionInfo{}, err
	}
	c.setSession(sid)
	c.srv.audit.Success(ctx, audit.ActionTwoFactor, audit.WithIdentity(identityID))
	return info, nil
}

func (c *Client) Register(ctx context.Context, data auth.Registration) (auth.RegisterResponse, error) {
	identity, state, err := c.srv.register(ctx, data)
	if err != nil {
		return auth.RegisterResponse{}, err
	}
	if state != StateActive {
		return auth.RegisterResponse{VerificationRequired: true}, nil
	}

	sid, info, err := c.srv.startSession(ctx, identity.ID)
	if err != nil {
		return auth.RegisterResponse{}, err
	}
	c.setSession(sid)
	return auth.RegisterResponse{Session: &info}, nil
}

// Logout ends the server session. Logging out without a session is not an error.
func (c *Client) Logout(ctx context.Context) error {
	sid := c.session()
	c.setSession("")
	if sid == "" {
		return nil
	}

	s := c.srv
	s.mu.Lock()
	sess, ok := s.sessions[sid]
	delete(s.sessions, sid)
	s.mu.Unlock()

	if ok {
		s.logger.InfoContext(ctx, "session ended", logger.IdentityID(sess.identityID))
		s.audit.Success(ctx, audit.ActionLogout, audit.WithIdentity(sess.identityID))
	}
	return nil
}

// RefreshSession slides the expiry of a live session forward by SessionTTL.
func (c *Client) RefreshSession(ctx context.Context) error {
	s := c.srv
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.lookup(c.session())
	if !ok {
		s.audit.Failure(ctx, audit.ActionSessionRefresh, auth.ErrUnauthorized)
		return auth.ErrUnauthorized
	}
	sess.expiresAt = s.now().Add(s.cfg.SessionTTL)
	s.audit.Success(ctx, audit.ActionSessionRefresh, audit.WithIdentity(sess.identityID))
	return nil
}

func (c *Client) GetInvite(_ context.Context, token string) (auth.InviteResponse, error) {
	s := c.srv
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, status := s.resolveInvite(token, c.session())
	if status != invite.StatusValid {
		return auth.InviteResponse{Status: string(status), Error: auth.Message(status.Err())}, nil
	}
	return auth.InviteResponse{Success: true, Invite: inv.invite.Clone(), Status: string(status)}, nil
}

// AcceptInvite consumes the token and joins the organization. The accepted
// organization becomes the active one for this session.
func (c *Client) AcceptInvite(ctx context.Context, token string) (auth.AcceptInviteResponse, error) {
	sid := c.session()
	s := c.srv
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookup(sid)
	if !ok {
		return auth.AcceptInviteResponse{Error: msgSignInRequired}, nil
	}
	inv, status := s.resolveInvite(token, sid)
	if status != invite.StatusValid {
		return auth.AcceptInviteResponse{Error: auth.Message(status.Err())}, nil
	}
	acc := s.byID[sess.identityID]
	if inv.invite.Email != "" && !strings.EqualFold(inv.invite.Email, acc.identity.Email) {
		return auth.AcceptInviteResponse{Error: msgInviteWrongEmail}, nil
	}
	o, ok := s.orgs[inv.invite.OrganizationID]
	if !ok {
		return auth.AcceptInviteResponse{Error: auth.Message(auth.ErrInviteInvalid)}, nil
	}

	inv.usedAt = s.now()
	s.join(acc, o, inv.invite.Role)
	sess.orgID = o.org.ID

	s.logger.InfoContext(ctx, "invite accepted",
		logger.IdentityID(sess.identityID),
		logger.OrganizationID(o.org.ID),
		logger.Role(string(inv.invite.Role)),
	)
	s.audit.Success(ctx, audit.ActionInviteAccepted,
		audit.WithIdentity(sess.identityID),
		audit.WithOrganization(o.org.ID),
		audit.WithMetadata("invite_id", inv.invite.ID.String()),
	)
	return auth.AcceptInviteResponse{Success: true, Organization: o.view(sess.identityID)}, nil
}

func (c *Client) SwitchOrganization(ctx context.Context, orgID uuid.UUID) (*auth.Organization, error) {
	s := c.srv
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.lookup(c.session())
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	o, ok := s.orgs[orgID]
	if !ok {
		return nil, auth.ErrOrganizationNotFound
	}
	org := o.view(sess.identityID)
	if org == nil {
		return nil, auth.ErrOrganizationNotFound
	}
	sess.orgID = orgID
	s.audit.Success(ctx, audit.ActionSwitchOrg, audit.WithIdentity(sess.identityID), audit.WithOrganization(orgID))
	s.logger.DebugContext(ctx, "active organization changed", logger.IdentityID(sess.identityID), logger.OrganizationID(orgID))
	return org, nil
}

// resolveInvite classifies a token. Callers hold s.mu.
func (s *Server) resolveInvite(token, sid string) (*invitation, invite.Status) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, invite.StatusInvalid
	}
	inv, ok := s.invites[hashToken(token)]
	switch {
	case !ok:
		return nil, invite.StatusInvalid
	case !inv.usedAt.IsZero():
		return inv, invite.StatusAlreadyUsed
	case inv.invite.IsExpired(s.now()):
		return inv, invite.StatusExpired
	}
	if sess, ok := s.lookup(sid); ok {
		if o, ok := s.orgs[inv.invite.OrganizationID]; ok {
			if _, member := o.members[sess.identityID]; member {
				return inv, invite.StatusAlreadyMember
			}
		}
	}
	return inv, invite.StatusValid
}
