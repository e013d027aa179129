// Package auth binds the provider client to a request's session and
// resolves the caller's identity.
package auth

import (
	"context"

	"fraccional/internal/model"
	"fraccional/internal/supabase"
)

// Provider is the full auth-provider capability used by the application.
// *supabase.AuthClient implements it.
type Provider interface {
	SignUp(ctx context.Context, params supabase.SignUpParams) (*model.AuthResponse, error)
	SignInWithPassword(ctx context.Context, email string, password string) (*model.AuthResponse, error)
	SignOut(ctx context.Context) error
	GetSession(ctx context.Context) (*model.Session, error)
	RefreshSession(ctx context.Context) (*model.Session, error)
	GetUser(ctx context.Context) (*model.User, error)
	UpdateUser(ctx context.Context, attrs supabase.UserAttributes) (*model.User, error)
	VerifyOTP(ctx context.Context, params supabase.VerifyOTPParams) (*model.AuthResponse, error)
	Resend(ctx context.Context, params supabase.ResendParams) error
	ResetPasswordForEmail(ctx context.Context, email string, redirectTo string) error
}

var _ Provider = (*supabase.AuthClient)(nil)

// Binder returns a provider bound to store.
type Binder func(store supabase.SessionStore) Provider

func SupabaseBinder(client *supabase.Client) Binder {
	return func(store supabase.SessionStore) Provider {
		return client.Auth(store)
	}
}
