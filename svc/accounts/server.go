package accounts

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/accesskit/pkg/audit"
	"github.com/dmitrymomot/accesskit/pkg/auth"
	"github.com/dmitrymomot/accesskit/pkg/logger"
	"github.com/dmitrymomot/accesskit/pkg/rbac"
	"github.com/dmitrymomot/accesskit/pkg/twofactor"
)

// AccountState gates sign-in after the password has been checked.
type AccountState string

const (
	StateActive     AccountState = "active"
	StateUnverified AccountState = "unverified"
	StateLocked     AccountState = "locked"
)

// PermissionInvite is what an inviter's organization role must grant.
const PermissionInvite = "members.invite"

type account struct {
	identity auth.Identity
	hash     []byte
	state    AccountState
	orgs     []uuid.UUID // join order; the first one is the default on sign-in
}

type organization struct {
	org     auth.Organization // Role unset; filled per member
	members map[uuid.UUID]auth.OrgRole
}

type invitation struct {
	invite auth.Invite
	usedAt time.Time
}

type session struct {
	identityID uuid.UUID
	orgID      uuid.UUID
	expiresAt  time.Time
}

// Server is an in-memory identity backend. Each browser talks to it through
// its own Client, which holds the session cookie.
type Server struct {
	cfg       Config
	twoFactor *twofactor.Service
	policy    *rbac.Policy
	now       func() time.Time
	logger    *slog.Logger
	audit     *audit.Trail

	mu       sync.RWMutex
	byEmail  map[string]*account
	byID     map[uuid.UUID]*account
	orgs     map[uuid.UUID]*organization
	slugs    map[string]uuid.UUID
	invites  map[string]*invitation // keyed by token hash
	sessions map[string]*session    // keyed by session id

	dummyHash func() []byte
}

// New creates an empty backend. twoFactor may be nil, in which case no
// account ever gets a second-factor challenge.
func New(twoFactor *twofactor.Service, cfg Config, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg.withDefaults(),
		twoFactor: twoFactor,
		policy:    rbac.DefaultPolicy(),
		now:       time.Now,
		logger:    logger.Discard(),
		byEmail:   make(map[string]*account),
		byID:      make(map[uuid.UUID]*account),
		orgs:      make(map[uuid.UUID]*organization),
		slugs:     make(map[string]uuid.UUID),
		invites:   make(map[string]*invitation),
		sessions:  make(map[string]*session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(logger.Component("accounts"))
	s.dummyHash = sync.OnceValue(func() []byte {
		h, _ := bcrypt.GenerateFromPassword([]byte("accesskit-dummy-password"), s.cfg.BcryptCost)
		return h
	})
	return s
}

// NewClient returns a client with an empty cookie jar.
func (s *Server) NewClient() *Client {
	return &Client{srv: s}
}

// TwoFactor exposes the second-factor service for enrollment flows.
func (s *Server) TwoFactor() *twofactor.Service {
	return s.twoFactor
}

// CreateAccount provisions an account directly, bypassing Register.
func (s *Server) CreateAccount(ctx context.Context, reg auth.Registration, state AccountState, roles ...auth.GlobalRole) (*auth.Identity, error) {
	email, err := normalizeEmail(reg.Email)
	if err != nil {
		return nil, err
	}
	if err := s.checkPassword(reg.Password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	acc := &account{
		identity: auth.Identity{
			ID:            uuid.New(),
			Email:         email,
			EmailVerified: state != StateUnverified,
			CreatedAt:     s.now(),
			Roles:         slices.Clone(roles),
		},
		hash:  hash,
		state: state,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return nil, auth.ErrEmailAlreadyExists
	}
	s.byEmail[email] = acc
	s.byID[acc.identity.ID] = acc

	s.logger.InfoContext(ctx, "account created",
		logger.IdentityID(acc.identity.ID),
		slog.String("state", string(state)),
	)
	return acc.identity.Clone(), nil
}

// SetAccountState moves an account between active, unverified and locked.
// Locking ends every session of the account.
func (s *Server) SetAccountState(ctx context.Context, identityID uuid.UUID, state AccountState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.byID[identityID]
	if !ok {
		return ErrIdentityNotFound
	}
	acc.state = state
	if state == StateActive {
		acc.identity.EmailVerified = true
	}
	if state == StateLocked {
		for id, sess := range s.sessions {
			if sess.identityID == identityID {
				delete(s.sessions, id)
			}
		}
	}
	s.logger.InfoContext(ctx, "account state changed", logger.IdentityID(identityID), slog.String("state", string(state)))
	s.audit.Success(ctx, audit.ActionAccountState, audit.WithIdentity(identityID), audit.WithMetadata("state", string(state)))
	return nil
}

// CreateOrganization creates an organization owned by ownerID.
func (s *Server) CreateOrganization(ctx context.Context, ownerID uuid.UUID, name string) (*auth.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.byID[ownerID]
	if !ok {
		return nil, ErrIdentityNotFound
	}

	o := &organization{
		org:     auth.Organization{ID: uuid.New(), Name: name, Slug: s.uniqueSlug(name)},
		members: make(map[uuid.UUID]auth.OrgRole),
	}
	s.orgs[o.org.ID] = o
	s.slugs[o.org.Slug] = o.org.ID
	s.join(owner, o, auth.OrgRoleOwner)

	s.logger.InfoContext(ctx, "organization created", logger.OrganizationID(o.org.ID), logger.IdentityID(ownerID))
	s.audit.Success(ctx, audit.ActionOrganizationNew, audit.WithIdentity(ownerID), audit.WithOrganization(o.org.ID))
	return o.view(ownerID), nil
}

// AddMember grants identityID a role in orgID.
func (s *Server) AddMember(ctx context.Context, orgID, identityID uuid.UUID, role auth.OrgRole) error {
	if !validRole(role) {
		return ErrInvalidRole
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orgs[orgID]
	if !ok {
		return auth.ErrOrganizationNotFound
	}
	acc, ok := s.byID[identityID]
	if !ok {
		return ErrIdentityNotFound
	}
	if _, ok := o.members[identityID]; ok {
		return ErrAlreadyMember
	}
	s.join(acc, o, role)
	s.logger.InfoContext(ctx, "member added", logger.OrganizationID(orgID), logger.IdentityID(identityID), logger.Role(string(role)))
	s.audit.Success(ctx, audit.ActionMemberAdded,
		audit.WithIdentity(identityID),
		audit.WithOrganization(orgID),
		audit.WithMetadata("role", string(role)),
	)
	return nil
}

// Memberships lists the organizations of an identity in join order.
func (s *Server) Memberships(identityID uuid.UUID) []auth.Organization {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.byID[identityID]
	if !ok {
		return nil
	}
	out := make([]auth.Organization, 0, len(acc.orgs))
	for _, id := range acc.orgs {
		if o, ok := s.orgs[id]; ok {
			out = append(out, *o.view(identityID))
		}
	}
	return out
}

// CreateInvite issues a single-use invitation token. The inviter's role in
// the organization must grant PermissionInvite. Only the hash of the token
// is kept.
func (s *Server) CreateInvite(ctx context.Context, orgID, inviterID uuid.UUID, email string, role auth.OrgRole) (string, *auth.Invite, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", nil, err
	}
	if !validRole(role) {
		return "", nil, ErrInvalidRole
	}
	token, err := randomToken()
	if err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orgs[orgID]
	if !ok {
		return "", nil, auth.ErrOrganizationNotFound
	}
	inviter, ok := s.byID[inviterID]
	if !ok {
		return "", nil, ErrIdentityNotFound
	}
	if !s.policy.Grants(o.members[inviterID], PermissionInvite) {
		s.audit.Failure(ctx, audit.ActionInviteCreated, auth.ErrUnauthorized,
			audit.WithIdentity(inviterID),
			audit.WithOrganization(orgID),
		)
		return "", nil, auth.ErrUnauthorized
	}

	inv := auth.Invite{
		ID:               uuid.New(),
		OrganizationID:   orgID,
		OrganizationName: o.org.Name,
		InviterName:      displayName(inviter.identity.Email),
		InviterEmail:     inviter.identity.Email,
		Role:             role,
		Email:            email,
		ExpiresAt:        s.now().Add(s.cfg.InviteTTL),
	}
	s.invites[hashToken(token)] = &invitation{invite: inv}

	s.logger.InfoContext(ctx, "invite created",
		logger.OrganizationID(orgID),
		logger.IdentityID(inviterID),
		logger.Role(string(role)),
	)
	s.audit.Success(ctx, audit.ActionInviteCreated,
		audit.WithIdentity(inviterID),
		audit.WithOrganization(orgID),
		audit.WithMetadata("invite_id", inv.ID.String()),
		audit.WithMetadata("role", string(role)),
	)
	return token, inv.Clone(), nil
}

// authenticate checks credentials, then the account state. Unknown emails
// and wrong passwords are indistinguishable.
func (s *Server) authenticate(email, password string) (auth.Identity, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash(), []byte(password))
		return auth.Identity{}, auth.ErrInvalidCredentials
	}

	s.mu.RLock()
	acc, ok := s.byEmail[email]
	var hash []byte
	if ok {
		hash = acc.hash
	}
	s.mu.RUnlock()

	if !ok {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash(), []byte(password))
		return auth.Identity{}, auth.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return auth.Identity{}, auth.ErrInvalidCredentials
	}
	return s.signInAllowed(acc.identity.ID)
}

func (s *Server) signInAllowed(identityID uuid.UUID) (auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.byID[identityID]
	if !ok {
		return auth.Identity{}, auth.ErrInvalidCredentials
	}
	switch acc.state {
	case StateLocked:
		return auth.Identity{}, auth.ErrAccountLocked
	case StateUnverified:
		return auth.Identity{}, auth.ErrEmailNotVerified
	}
	return *acc.identity.Clone(), nil
}

// register creates a self-service account.
func (s *Server) register(ctx context.Context, reg auth.Registration) (auth.Identity, AccountState, error) {
	state := StateActive
	if s.cfg.RequireVerification {
		state = StateUnverified
	}
	id, err := s.CreateAccount(ctx, reg, state)
	if err != nil {
		s.audit.Failure(ctx, audit.ActionRegister, err, audit.WithMetadata("email", audit.HashIdentifier(reg.Email)))
		return auth.Identity{}, "", err
	}
	s.audit.Success(ctx, audit.ActionRegister, audit.WithIdentity(id.ID), audit.WithMetadata("state", string(state)))
	return *id, state, nil
}

// startSession opens a session on the identity's first organization.
func (s *Server) startSession(ctx context.Context, identityID uuid.UUID) (string, auth.SessionInfo, error) {
	sid, err := randomToken()
	if err != nil {
		return "", auth.SessionInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.byID[identityID]
	if !ok {
		return "", auth.SessionInfo{}, ErrIdentityNotFound
	}
	sess := &session{identityID: identityID, expiresAt: s.now().Add(s.cfg.SessionTTL)}
	if len(acc.orgs) > 0 {
		sess.orgID = acc.orgs[0]
	}
	s.sessions[sid] = sess

	s.logger.InfoContext(ctx, "session started", logger.IdentityID(identityID))
	return sid, s.info(sess), nil
}

// lookup returns the live session for sid. Expired sessions are removed.
func (s *Server) lookup(sid string) (*session, bool) {
	if sid == "" {
		return nil, false
	}
	sess, ok := s.sessions[sid]
	if !ok {
		return nil, false
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.sessions, sid)
		return nil, false
	}
	return sess, true
}

func (s *Server) info(sess *session) auth.SessionInfo {
	acc := s.byID[sess.identityID]
	info := auth.SessionInfo{Identity: acc.identity.Clone(), ExpiresAt: sess.expiresAt}
	if o, ok := s.orgs[sess.orgID]; ok {
		info.Organization = o.view(sess.identityID)
	}
	return info
}

func (s *Server) join(acc *account, o *organization, role auth.OrgRole) {
	o.members[acc.identity.ID] = role
	acc.orgs = append(acc.orgs, o.org.ID)
}

func (s *Server) uniqueSlug(name string) string {
	base := slugify(name)
	if base == "" {
		base = "org"
	}
	slug := base
	for n := 2; ; n++ {
		if _, taken := s.slugs[slug]; !taken {
			return slug
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

func (s *Server) checkPassword(password string) error {
	if password == "" {
		return auth.ErrEmptyPassword
	}
	if len([]rune(password)) < s.cfg.MinPasswordLength {
		return auth.ErrWeakPassword
	}
	return nil
}

func (o *organization) view(identityID uuid.UUID) *auth.Organization {
	role, ok := o.members[identityID]
	if !ok {
		return nil
	}
	org := o.org
	org.Role = role
	return &org
}

func validRole(role auth.OrgRole) bool {
	switch role {
	case auth.OrgRoleOwner, auth.OrgRoleAdmin, auth.OrgRoleMember, auth.OrgRoleViewer:
		return true
	}
	return false
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", auth.ErrEmptyEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", auth.ErrInvalidEmail
	}
	return email, nil
}

func displayName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// slugify keeps ASCII letters and digits and collapses everything else
// into single dashes.
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Join(errors.New("accounts: random token"), err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
