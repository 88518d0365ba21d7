package authstate_test

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dmitrymomot/accesskit/pkg/auth"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CurrentSession(ctx context.Context) (*auth.SessionInfo, error) {
	args := m.Called(ctx)
	info, _ := args.Get(0).(*auth.SessionInfo)
	return info, args.Error(1)
}

func (m *mockClient) Login(ctx context.Context, email, password string) (auth.LoginResponse, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(auth.LoginResponse), args.Error(1)
}

func (m *mockClient) VerifyTwoFactor(ctx context.Context, code, pendingToken string) (auth.SessionInfo, error) {
	args := m.Called(ctx, code, pendingToken)
	return args.Get(0).(auth.SessionInfo), args.Error(1)
}

func (m *mockClient) Register(ctx context.Context, data auth.Registration) (auth.RegisterResponse, error) {
	args := m.Called(ctx, data)
	return args.Get(0).(auth.RegisterResponse), args.Error(1)
}

func (m *mockClient) Logout(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockClient) RefreshSession(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockClient) GetInvite(ctx context.Context, token string) (auth.InviteResponse, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(auth.InviteResponse), args.Error(1)
}

func (m *mockClient) AcceptInvite(ctx context.Context, token string) (auth.AcceptInviteResponse, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(auth.AcceptInviteResponse), args.Error(1)
}

func (m *mockClient) SwitchOrganization(ctx context.Context, orgID uuid.UUID) (*auth.Organization, error) {
	args := m.Called(ctx, orgID)
	org, _ := args.Get(0).(*auth.Organization)
	return org, args.Error(1)
}
