package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"fraccional/internal/model"
)

// OTP and resend types understood by the provider.
const (
	OTPTypeEmail    = "email"
	OTPTypeRecovery = "recovery"
	ResendSignup    = "signup"
)

type SignUpOptions struct {
	// Data is stored as the user's metadata.
	Data            map[string]any
	EmailRedirectTo string
}

type SignUpParams struct {
	Email    string
	Password string
	Options  SignUpOptions
}

type VerifyOTPParams struct {
	TokenHash string
	Type      string
}

type ResendParams struct {
	Type  string
	Email string
}

// UserAttributes is the updatable subset of a user. Empty fields are not
// sent.
type UserAttributes struct {
	Email    string         `json:"email,omitempty"`
	Password string         `json:"password,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// AuthClient is a provider auth handle bound to one session store.
type AuthClient struct {
	client *Client
	store  SessionStore
	now    func() time.Time
}

type userPayload struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
	CreatedAt        *time.Time     `json:"created_at"`
}

// sessionPayload decodes both a session response and a bare user
// response (unconfirmed sign-up).
type sessionPayload struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         *userPayload `json:"user"`
	userPayload
}

func (a *AuthClient) SignUp(ctx context.Context, params SignUpParams) (*model.AuthResponse, error) {
	data := params.Options.Data
	if data == nil {
		data = map[string]any{}
	}

	var query url.Values
	if params.Options.EmailRedirectTo != "" {
		query = url.Values{"redirect_to": {params.Options.EmailRedirectTo}}
	}

	var payload sessionPayload
	err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/signup",
		query:  query,
		body: map[string]any{
			"email":    params.Email,
			"password": params.Password,
			"data":     data,
		},
	}, &payload)
	if err != nil {
		return nil, err
	}

	return a.acceptSession(ctx, payload)
}

func (a *AuthClient) SignInWithPassword(ctx context.Context, email string, password string) (*model.AuthResponse, error) {
	var payload sessionPayload
	err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
	}, &payload)
	if err != nil {
		return nil, err
	}

	return a.acceptSession(ctx, payload)
}

// SignOut revokes the stored session and always clears the store.
// Provider rejections of an already-dead session are not errors.
func (a *AuthClient) SignOut(ctx context.Context) error {
	current, err := a.store.Load(ctx)
	if err != nil {
		return err
	}

	var signOutErr error
	if current != nil && current.AccessToken != "" {
		signOutErr = a.client.do(ctx, request{
			method: http.MethodPost,
			path:   "/logout",
			bearer: current.AccessToken,
		}, nil)
		if authErr, ok := IsAuthError(signOutErr); ok {
			switch authErr.Status {
			case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
				signOutErr = nil
			}
		}
	}

	if err := a.store.Clear(ctx); err != nil {
		return errors.Join(signOutErr, err)
	}

	return signOutErr
}

// GetSession returns the stored session without validating or
// refreshing it.
func (a *AuthClient) GetSession(ctx context.Context) (*model.Session, error) {
	return a.store.Load(ctx)
}

func (a *AuthClient) GetUser(ctx context.Context) (*model.User, error) {
	current, err := a.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil || current.AccessToken == "" {
		return nil, ErrSessionMissing
	}

	var payload userPayload
	err = a.client.do(ctx, request{
		method: http.MethodGet,
		path:   "/user",
		bearer: current.AccessToken,
	}, &payload)
	if err != nil {
		return nil, err
	}

	return payload.toModel(), nil
}

// RefreshSession exchanges the stored refresh token for a new session
// and stores it.
func (a *AuthClient) RefreshSession(ctx context.Context) (*model.Session, error) {
	current, err := a.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil || current.RefreshToken == "" {
		return nil, ErrSessionMissing
	}

	var payload sessionPayload
	err = a.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/token",
		query:  url.Values{"grant_type": {"refresh_token"}},
		body:   map[string]string{"refresh_token": current.RefreshToken},
	}, &payload)
	if err != nil {
		return nil, err
	}

	resp, err := a.acceptSession(ctx, payload)
	if err != nil {
		return nil, err
	}
	if resp.Session == nil {
		return nil, ErrSessionMissing
	}

	return resp.Session, nil
}

func (a *AuthClient) VerifyOTP(ctx context.Context, params VerifyOTPParams) (*model.AuthResponse, error) {
	var payload sessionPayload
	err := a.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/verify",
		body:   map[string]string{"type": params.Type, "token_hash": params.TokenHash},
	}, &payload)
	if err != nil {
		return nil, err
	}

	return a.acceptSession(ctx, payload)
}

func (a *AuthClient) Resend(ctx context.Context, params ResendParams) error {
	return a.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/resend",
		body:   map[string]string{"type": params.Type, "email": params.Email},
	}, nil)
}

func (a *AuthClient) UpdateUser(ctx context.Context, attrs UserAttributes) (*model.User, error) {
	current, err := a.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil || current.AccessToken == "" {
		return nil, ErrSessionMissing
	}

	var payload userPayload
	err = a.client.do(ctx, request{
		method: http.MethodPut,
		path:   "/user",
		bearer: current.AccessToken,
		body:   attrs,
	}, &payload)
	if err != nil {
		return nil, err
	}

	return payload.toModel(), nil
}

func (a *AuthClient) ResetPasswordForEmail(ctx context.Context, email string, redirectTo string) error {
	var query url.Values
	if redirectTo != "" {
		query = url.Values{"redirect_to": {redirectTo}}
	}

	return a.client.do(ctx, request{
		method: http.MethodPost,
		path:   "/recover",
		query:  query,
		body:   map[string]string{"email": email},
	}, nil)
}

// acceptSession converts a provider payload and stores the session when
// one was issued.
func (a *AuthClient) acceptSession(ctx context.Context, payload sessionPayload) (*model.AuthResponse, error) {
	resp := &model.AuthResponse{}

	switch {
	case payload.User != nil:
		resp.User = payload.User.toModel()
	case payload.ID != "":
		resp.User = payload.userPayload.toModel()
	}

	if payload.AccessToken == "" {
		return resp, nil
	}

	session := &model.Session{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		TokenType:    payload.TokenType,
		ExpiresIn:    payload.ExpiresIn,
		User:         resp.User,
	}

	switch {
	case payload.ExpiresAt > 0:
		exp := payload.ExpiresAt
		session.ExpiresAt = &exp
	case payload.ExpiresIn > 0:
		exp := a.now().Unix() + payload.ExpiresIn
		session.ExpiresAt = &exp
	default:
		if claims, err := ParseAccessToken(payload.AccessToken); err == nil {
			session.ExpiresAt = claims.ExpiresAt
		}
	}

	if err := a.store.Save(ctx, session); err != nil {
		return nil, err
	}

	resp.Session = session
	return resp, nil
}

func (u *userPayload) toModel() *model.User {
	if u == nil {
		return nil
	}
	return &model.User{
		ID:               u.ID,
		Email:            u.Email,
		EmailConfirmedAt: u.EmailConfirmedAt,
		Metadata:         u.UserMetadata,
		CreatedAt:        u.CreatedAt,
	}
}
