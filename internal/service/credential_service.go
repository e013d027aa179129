package service

import (
	"context"
	"net/http"
	"strings"

	"fraccional/internal/auth"
	"fraccional/internal/model"
	"fraccional/internal/supabase"
	"fraccional/pkg/apierror"
)

const (
	ResetPasswordPath = "/auth/reset-password"
	VerifyEmailPath   = "/auth/verify-email"

	msgNoSession             = "No se pudo establecer la sesión"
	msgUnauthenticated       = "Usuario no autenticado"
	msgCurrentPasswordWrong  = "Contraseña actual incorrecta"
	msgEmailPasswordRequired = "Correo y contraseña son requeridos"
	msgEmailRequired         = "El correo es requerido"
	msgPasswordRequired      = "La contraseña es requerida"
	msgTokenRequired         = "El token de verificación es requerido"
	msgNothingToUpdate       = "No hay cambios que guardar"
	msgCurrentAndNewRequired = "La contraseña actual y la nueva son requeridas"
)

type ProfileStore interface {
	FindByID(ctx context.Context, id string) (model.Profile, error)
	Update(ctx context.Context, id string, upd model.ProfileUpdate) (model.Profile, error)
	Deactivate(ctx context.Context, id string) error
}

// CredentialService runs the account operations against a provider bound
// to the caller's session. Provider errors are returned unchanged.
type CredentialService struct {
	profiles ProfileStore
	siteURL  string
}

func NewCredentialService(profiles ProfileStore, siteURL string) *CredentialService {
	return &CredentialService{profiles: profiles, siteURL: strings.TrimRight(siteURL, "/")}
}

func (s *CredentialService) SignUp(ctx context.Context, p auth.Provider, req model.SignUpRequest) (*model.AuthResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		return nil, apierror.BadRequest(msgEmailPasswordRequired, "")
	}

	params := supabase.SignUpParams{
		Email:    email,
		Password: req.Password,
		Options: supabase.SignUpOptions{
			Data: map[string]any{"nombre": strings.TrimSpace(req.Name)},
		},
	}
	if s.siteURL != "" {
		params.Options.EmailRedirectTo = s.siteURL + VerifyEmailPath
	}

	return p.SignUp(ctx, params)
}

// SignIn succeeds only when the provider opened a session.
func (s *CredentialService) SignIn(ctx context.Context, p auth.Provider, email string, password string) (*model.AuthResponse, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, apierror.BadRequest(msgEmailPasswordRequired, "")
	}

	resp, err := p.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Session == nil {
		return nil, apierror.Wrap(model.ErrNoSession, apierror.CodeAuth, msgNoSession, http.StatusUnauthorized)
	}

	return resp, nil
}

func (s *CredentialService) SignOut(ctx context.Context, p auth.Provider) error {
	return p.SignOut(ctx)
}

// ChangePassword re-authenticates with the current password before
// updating; a wrong current password never reaches the update.
func (s *CredentialService) ChangePassword(ctx context.Context, p auth.Provider, currentPassword string, newPassword string) (*model.User, error) {
	if currentPassword == "" || newPassword == "" {
		return nil, apierror.BadRequest(msgCurrentAndNewRequired, "")
	}

	user, err := s.CurrentUser(ctx, p)
	if err != nil || user == nil || user.Email == "" {
		return nil, apierror.Wrap(model.ErrUnauthenticated, apierror.CodeUnauthorized, msgUnauthenticated, http.StatusUnauthorized)
	}

	if _, err := s.SignIn(ctx, p, user.Email, currentPassword); err != nil {
		return nil, apierror.Wrap(model.ErrCurrentPasswordIncorrect, apierror.CodeBadRequest, msgCurrentPasswordWrong, http.StatusBadRequest)
	}

	return p.UpdateUser(ctx, supabase.UserAttributes{Password: newPassword})
}

func (s *CredentialService) RequestPasswordReset(ctx context.Context, p auth.Provider, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apierror.BadRequest(msgEmailRequired, "")
	}
	return p.ResetPasswordForEmail(ctx, email, s.siteURL+ResetPasswordPath)
}

func (s *CredentialService) ResetPassword(ctx context.Context, p auth.Provider, newPassword string) (*model.User, error) {
	if newPassword == "" {
		return nil, apierror.BadRequest(msgPasswordRequired, "")
	}
	return p.UpdateUser(ctx, supabase.UserAttributes{Password: newPassword})
}

func (s *CredentialService) VerifyEmail(ctx context.Context, p auth.Provider, tokenHash string) (*model.AuthResponse, error) {
	return s.verify(ctx, p, tokenHash, supabase.OTPTypeEmail)
}

// VerifyRecovery exchanges a password-reset link for a session.
func (s *CredentialService) VerifyRecovery(ctx context.Context, p auth.Provider, tokenHash string) (*model.AuthResponse, error) {
	return s.verify(ctx, p, tokenHash, supabase.OTPTypeRecovery)
}

func (s *CredentialService) verify(ctx context.Context, p auth.Provider, tokenHash string, typ string) (*model.AuthResponse, error) {
	if strings.TrimSpace(tokenHash) == "" {
		return nil, apierror.BadRequest(msgTokenRequired, "")
	}
	return p.VerifyOTP(ctx, supabase.VerifyOTPParams{TokenHash: tokenHash, Type: typ})
}

func (s *CredentialService) ResendEmailVerification(ctx context.Context, p auth.Provider, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return apierror.BadRequest(msgEmailRequired, "")
	}
	return p.Resend(ctx, supabase.ResendParams{Type: supabase.ResendSignup, Email: email})
}

func (s *CredentialService) CurrentUser(ctx context.Context, p auth.Provider) (*model.User, error) {
	return p.GetUser(ctx)
}

// SignedInUser returns the user of a fresh sign-in, asking the provider
// when the response carried only a session.
func (s *CredentialService) SignedInUser(ctx context.Context, p auth.Provider, resp *model.AuthResponse) (*model.User, error) {
	if resp != nil && resp.User != nil {
		return resp.User, nil
	}
	user, err := s.CurrentUser(ctx, p)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apierror.Wrap(model.ErrUnauthenticated, apierror.CodeUnauthorized, msgUnauthenticated, http.StatusUnauthorized)
	}
	return user, nil
}

func (s *CredentialService) GetUserProfile(ctx context.Context, userID string) (model.Profile, error) {
	return s.profiles.FindByID(ctx, userID)
}

func (s *CredentialService) UpdateProfile(ctx context.Context, userID string, upd model.ProfileUpdate) (model.Profile, error) {
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		upd.Name = &name
	}
	if upd.Phone != nil {
		phone := strings.TrimSpace(*upd.Phone)
		upd.Phone = &phone
	}
	if upd.Empty() {
		return model.Profile{}, apierror.Wrap(model.ErrInvalidInput, apierror.CodeBadRequest, msgNothingToUpdate, http.StatusBadRequest)
	}
	return s.profiles.Update(ctx, userID, upd)
}

// DeleteAccount deactivates the profile; the provider account is kept.
func (s *CredentialService) DeleteAccount(ctx context.Context, userID string) error {
	return s.profiles.Deactivate(ctx, userID)
}
