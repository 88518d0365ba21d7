package invite_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accesskit/pkg/auth"
	"github.com/dmitrymomot/accesskit/pkg/invite"
)

const token = "inv_8f1c2a"

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) GetInvite(ctx context.Context, token string) (auth.InviteResponse, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(auth.InviteResponse), args.Error(1)
}

func (m *mockClient) AcceptInvite(ctx context.Context, token string) (auth.AcceptInviteResponse, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(auth.AcceptInviteResponse), args.Error(1)
}

type sessions struct {
	session auth.Session
}

func (s sessions) Current() auth.Session { return s.session }

func signedIn() sessions {
	id := &auth.Identity{ID: uuid.New(), Email: "ada@example.com"}
	return sessions{session: auth.AuthenticatedSession(id, nil, t0.Add(time.Hour))}
}

func anonymous() sessions {
	return sessions{session: auth.UnauthenticatedSession()}
}

func sampleInvite() *auth.Invite {
	return &auth.Invite{
		ID:               uuid.New(),
		OrganizationID:   uuid.New(),
		OrganizationName: "Acme",
		InviterName:      "Grace",
		InviterEmail:     "grace@example.com",
		Role:             auth.OrgRoleMember,
		Email:            "ada@example.com",
		ExpiresAt:        t0.Add(48 * time.Hour),
	}
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func TestResolver_Load(t *testing.T) {
	t.Parallel()

	t.Run("empty token makes no call", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		r := invite.New("  ", client, anonymous())

		s := r.Load(context.Background())
		assert.Equal(t, invite.StatusInvalid, s.Status)
		assert.Equal(t, "No invite token provided", s.Error)
		client.AssertNotCalled(t, "GetInvite", mock.Anything, mock.Anything)
	})

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		inv := sampleInvite()
		client := &mockClient{}
		client.On("GetInvite", mock.Anything, token).
			Return(auth.InviteResponse{Success: true, Invite: inv}, nil).Once()
		c := &clock{now: t0}
		r := invite.New(token, client, anonymous(), invite.WithClock(c.Now))

		assert.Equal(t, invite.StatusLoading, r.State().Status)
		s := r.Load(context.Background())
		assert.Equal(t, invite.StatusValid, s.Status)
		assert.Equal(t, inv, s.Invite)
		assert.Empty(t, s.Error)

		// Second Load is a no-op.
		assert.Equal(t, invite.StatusValid, r.Load(context.Background()).Status)
		client.AssertExpectations(t)
	})

	t.Run("failure statuses", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name    string
			status  string
			message string
			want    invite.Status
			wantMsg string
		}{
			{"expired default message", "expired", "", invite.StatusExpired, "This invitation has expired."},
			{"used with server message", "already_used", "Invite was accepted on Monday.", invite.StatusAlreadyUsed, "Invite was accepted on Monday."},
			{"already member", "already_member", "", invite.StatusAlreadyMember, "You are already a member of this organization."},
			{"invalid", "invalid", "", invite.StatusInvalid, "This invitation link is invalid."},
			{"unknown maps to invalid", "revoked", "", invite.StatusInvalid, "This invitation link is invalid."},
			{"failed response claiming valid", "valid", "", invite.StatusInvalid, "This invitation link is invalid."},
			{"server message echoing the token", "invalid", "token " + token + " not found", invite.StatusInvalid, "This invitation link is invalid."},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				client := &mockClient{}
				client.On("GetInvite", mock.Anything, token).
					Return(auth.InviteResponse{Status: tt.status, Error: tt.message}, nil)
				r := invite.New(token, client, anonymous())

				s := r.Load(context.Background())
				assert.Equal(t, tt.want, s.Status)
				assert.Equal(t, tt.wantMsg, s.Error)
				assert.True(t, s.Status.IsTerminal())
			})
		}
	})

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("GetInvite", mock.Anything, token).
			Return(auth.InviteResponse{}, errors.New("dial tcp: i/o timeout"))
		r := invite.New(token, client, anonymous())

		s := r.Load(context.Background())
		assert.Equal(t, invite.StatusInvalid, s.Status)
		assert.Equal(t, auth.Message(auth.ErrNetwork), s.Error)
		assert.NotContains(t, s.Error, "dial tcp")
	})

	t.Run("success without payload", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("GetInvite", mock.Anything, token).Return(auth.InviteResponse{Success: true}, nil)
		r := invite.New(token, client, anonymous())

		assert.Equal(t, invite.StatusInvalid, r.Load(context.Background()).Status)
	})
}

func TestResolver_Retry(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("GetInvite", mock.Anything, token).
		Return(auth.InviteResponse{}, errors.New("connection reset")).Once()
	client.On("GetInvite", mock.Anything, token).
		Return(auth.InviteResponse{Success: true, Invite: sampleInvite()}, nil).Once()
	c := &clock{now: t0}
	r := invite.New(token, client, anonymous(), invite.WithClock(c.Now))
	ctx := context.Background()

	assert.Equal(t, invite.StatusInvalid, r.Load(ctx).Status)
	assert.Equal(t, invite.StatusInvalid, r.Load(ctx).Status)

	s := r.Retry(ctx)
	assert.Equal(t, invite.StatusValid, s.Status)
	assert.Empty(t, s.Error)
	client.AssertExpectations(t)
}

func TestResolver_ClientSideExpiry(t *testing.T) {
	t.Parallel()

	inv := sampleInvite()
	client := &mockClient{}
	client.On("GetInvite", mock.Anything, token).Return(auth.InviteResponse{Success: true, Invite: inv}, nil)
	c := &clock{now: t0}
	r := invite.New(token, client, signedIn(), invite.WithClock(c.Now))

	require.Equal(t, invite.StatusValid, r.Load(context.Background()).Status)

	c.Set(inv.ExpiresAt.Add(-time.Second))
	assert.Equal(t, invite.StatusValid, r.State().Status)

	c.Set(inv.ExpiresAt)
	s := r.State()
	assert.Equal(t, invite.StatusExpired, s.Status)
	assert.Equal(t, "This invitation has expired.", s.Error)
	assert.NotNil(t, s.Invite)
}

func TestResolver_Accept(t *testing.T) {
	t.Parallel()

	loaded := func(t *testing.T, client *mockClient, src invite.SessionSource) *invite.Resolver {
		t.Helper()
		client.On("GetInvite", mock.Anything, token).
			Return(auth.InviteResponse{Success: true, Invite: sampleInvite()}, nil)
		r := invite.New(token, client, src)
		require.Equal(t, invite.StatusValid, r.Load(context.Background()).Status)
		return r
	}

	t.Run("requires authentication", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		r := loaded(t, client, anonymous())

		org, err := r.Accept(context.Background())
		assert.ErrorIs(t, err, invite.ErrNotAuthenticated)
		assert.Nil(t, org)
		assert.Equal(t, "You must be logged in to accept this invitation", r.State().Error)
		client.AssertNotCalled(t, "AcceptInvite", mock.Anything, mock.Anything)
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		want := &auth.Organization{ID: uuid.New(), Name: "Acme", Slug: "acme", Role: auth.OrgRoleMember}
		client := &mockClient{}
		client.On("AcceptInvite", mock.Anything, token).
			Return(auth.AcceptInviteResponse{Success: true, Organization: want}, nil).Once()
		r := loaded(t, client, signedIn())

		org, err := r.Accept(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, org)

		s := r.State()
		assert.False(t, s.Accepting)
		assert.Empty(t, s.Error)
		assert.Equal(t, want, s.Accepted)
		client.AssertExpectations(t)
	})

	t.Run("server failure", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("AcceptInvite", mock.Anything, token).
			Return(auth.AcceptInviteResponse{Error: "You are already a member."}, nil)
		r := loaded(t, client, signedIn())

		org, err := r.Accept(context.Background())
		assert.ErrorIs(t, err, invite.ErrAcceptFailed)
		assert.Nil(t, org)
		assert.Equal(t, "You are already a member.", r.State().Error)
		assert.Nil(t, r.State().Accepted)
	})

	t.Run("server failure without message", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("AcceptInvite", mock.Anything, token).Return(auth.AcceptInviteResponse{}, nil)
		r := loaded(t, client, signedIn())

		_, err := r.Accept(context.Background())
		assert.ErrorIs(t, err, invite.ErrAcceptFailed)
		assert.NotEmpty(t, r.State().Error)
	})

	t.Run("transport error", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("AcceptInvite", mock.Anything, token).
			Return(auth.AcceptInviteResponse{}, errors.New("EOF"))
		r := loaded(t, client, signedIn())

		_, err := r.Accept(context.Background())
		assert.ErrorIs(t, err, auth.ErrNetwork)
		assert.Equal(t, auth.KindTransport, auth.KindOf(err))
		assert.Equal(t, auth.Message(auth.ErrNetwork), r.State().Error)
	})

	t.Run("success without organization", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("AcceptInvite", mock.Anything, token).
			Return(auth.AcceptInviteResponse{Success: true}, nil)
		r := loaded(t, client, signedIn())

		_, err := r.Accept(context.Background())
		assert.ErrorIs(t, err, auth.ErrMalformedResponse)
	})

	t.Run("single flight", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		entered := make(chan struct{})
		client := &mockClient{}
		client.On("AcceptInvite", mock.Anything, token).
			Run(func(mock.Arguments) {
				close(entered)
				<-release
			}).
			Return(auth.AcceptInviteResponse{Success: true, Organization: &auth.Organization{ID: uuid.New()}}, nil).Once()
		r := loaded(t, client, signedIn())

		done := make(chan error, 1)
		go func() {
			_, err := r.Accept(context.Background())
			done <- err
		}()
		<-entered

		assert.True(t, r.State().Accepting)
		_, err := r.Accept(context.Background())
		assert.ErrorIs(t, err, invite.ErrAcceptInFlight)

		close(release)
		require.NoError(t, <-done)
		assert.False(t, r.State().Accepting)
		client.AssertNumberOfCalls(t, "AcceptInvite", 1)
	})
}

func TestResolver_Close(t *testing.T) {
	t.Parallel()

	t.Run("discards an in-flight fetch", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		entered := make(chan struct{})
		client := &mockClient{}
		client.On("GetInvite", mock.Anything, token).
			Run(func(mock.Arguments) {
				close(entered)
				<-release
			}).
			Return(auth.InviteResponse{Success: true, Invite: sampleInvite()}, nil)
		r := invite.New(token, client, anonymous())

		done := make(chan invite.State, 1)
		go func() { done <- r.Load(context.Background()) }()
		<-entered
		r.Close()
		close(release)

		assert.Equal(t, invite.StatusLoading, (<-done).Status)
		assert.Equal(t, invite.StatusLoading, r.State().Status)
	})

	t.Run("discards an in-flight accept", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		entered := make(chan struct{})
		client := &mockClient{}
		client.On("GetInvite", mock.Anything, token).
			Return(auth.InviteResponse{Success: true, Invite: sampleInvite()}, nil)
		client.On("AcceptInvite", mock.Anything, token).
			Run(func(mock.Arguments) {
				close(entered)
				<-release
			}).
			Return(auth.AcceptInviteResponse{Success: true, Organization: &auth.Organization{ID: uuid.New()}}, nil)
		r := invite.New(token, client, signedIn())
		r.Load(context.Background())

		done := make(chan error, 1)
		go func() {
			_, err := r.Accept(context.Background())
			done <- err
		}()
		<-entered
		r.Close()
		close(release)

		assert.ErrorIs(t, <-done, invite.ErrClosed)
		assert.Nil(t, r.State().Accepted)

		_, err := r.Accept(context.Background())
		assert.ErrorIs(t, err, invite.ErrClosed)
	})
}

func TestParseStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, invite.StatusExpired, invite.ParseStatus("expired"))
	assert.Equal(t, invite.StatusAlreadyUsed, invite.ParseStatus("used"))
	assert.Equal(t, invite.StatusAlreadyMember, invite.ParseStatus("already_member"))
	assert.Equal(t, invite.StatusInvalid, invite.ParseStatus(""))
	assert.ErrorIs(t, invite.StatusAlreadyUsed.Err(), auth.ErrInviteUsed)
	assert.NoError(t, invite.StatusValid.Err())
	assert.False(t, invite.StatusLoading.IsTerminal())
}
