package auth

import (
	"context"

	"github.com/stretchr/testify/mock"

	"fraccional/internal/model"
	"fraccional/internal/supabase"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) SignUp(ctx context.Context, params supabase.SignUpParams) (*model.AuthResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthResponse), args.Error(1)
}

func (m *MockProvider) SignInWithPassword(ctx context.Context, email string, password string) (*model.AuthResponse, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthResponse), args.Error(1)
}

func (m *MockProvider) SignOut(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockProvider) GetSession(ctx context.Context) (*model.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockProvider) RefreshSession(ctx context.Context) (*model.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Session), args.Error(1)
}

func (m *MockProvider) GetUser(ctx context.Context) (*model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockProvider) UpdateUser(ctx context.Context, attrs supabase.UserAttributes) (*model.User, error) {
	args := m.Called(ctx, attrs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockProvider) VerifyOTP(ctx context.Context, params supabase.VerifyOTPParams) (*model.AuthResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuthResponse), args.Error(1)
}

func (m *MockProvider) Resend(ctx context.Context, params supabase.ResendParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockProvider) ResetPasswordForEmail(ctx context.Context, email string, redirectTo string) error {
	args := m.Called(ctx, email, redirectTo)
	return args.Error(0)
}
