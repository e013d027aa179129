package handler

import (
	"log/slog"
	"net/http"

	"fraccional/internal/auth"
	"fraccional/internal/middleware"
	"fraccional/internal/model"
	"fraccional/internal/role"
	"fraccional/internal/service"
	"fraccional/internal/supabase"
)

type sessionGateway interface {
	Scope(w http.ResponseWriter, r *http.Request) auth.Provider
	Authenticate(w http.ResponseWriter, r *http.Request) (*auth.Identity, error)
}

type AuthHandler struct {
	gateway     sessionGateway
	credentials *service.CredentialService
	roles       *RoleCookies
}

func NewAuthHandler(gateway sessionGateway, credentials *service.CredentialService, roles *RoleCookies) *AuthHandler {
	return &AuthHandler{gateway: gateway, credentials: credentials, roles: roles}
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var payload model.SignUpRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	resp, err := h.credentials.SignUp(r.Context(), h.gateway.Scope(w, r), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, map[string]any{
		"user":               resp.User,
		"needs_confirmation": resp.Session == nil,
	})
}

// Login signs in, derives the roles and returns where the client should go.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	provider := h.gateway.Scope(w, r)
	resp, err := h.credentials.SignIn(r.Context(), provider, payload.Email, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := h.credentials.SignedInUser(r.Context(), provider, resp)
	if err != nil {
		slog.Warn("signed in without a user", "error", err)
		writeSuccess(w, http.StatusOK, sessionView(resp.Session, nil, nil, role.OnboardingPath))
		return
	}

	flags := h.roles.Refresh(w, r.Context(), user.ID)
	slog.Info("user signed in", "user_id", user.ID, "classification", role.Classify(flags))

	writeSuccess(w, http.StatusOK, sessionView(resp.Session, user, &flags, role.LoginRedirect(flags)))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.credentials.SignOut(r.Context(), h.gateway.Scope(w, r))
	h.roles.Clear(w)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"logged_out": true})
}

// Refresh forces a token refresh and reissues the role claim.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	provider := h.gateway.Scope(w, r)

	current, err := provider.RefreshSession(r.Context())
	if err != nil {
		h.roles.Clear(w)
		writeError(w, err)
		return
	}

	user, err := h.credentials.CurrentUser(r.Context(), provider)
	if err != nil {
		writeError(w, err)
		return
	}

	flags := h.roles.Refresh(w, r.Context(), user.ID)
	writeSuccess(w, http.StatusOK, sessionView(current, user, &flags, ""))
}

// Session reports the caller's session. An invalid session is not an
// error here.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gateway.Authenticate(w, r)
	if err != nil {
		writeSuccess(w, http.StatusOK, model.SessionView{Authenticated: false})
		return
	}

	flags := h.roles.Flags(w, r, identity.User.ID)
	writeSuccess(w, http.StatusOK, sessionView(identity.Session, identity.User, &flags, ""))
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var payload model.EmailRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := h.credentials.RequestPasswordReset(r.Context(), h.gateway.Scope(w, r), payload.Email); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"sent": true})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	var payload model.ResetPasswordRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.credentials.ResetPassword(r.Context(), identity.Provider, payload.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user)
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityOrError(w, r)
	if !ok {
		return
	}

	var payload model.ChangePasswordRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	user, err := h.credentials.ChangePassword(r.Context(), identity.Provider, payload.CurrentPassword, payload.NewPassword)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, user)
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var payload model.VerifyEmailRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	provider := h.gateway.Scope(w, r)

	var (
		resp *model.AuthResponse
		err  error
	)
	if payload.Type == supabase.OTPTypeRecovery {
		resp, err = h.credentials.VerifyRecovery(r.Context(), provider, payload.TokenHash)
	} else {
		resp, err = h.credentials.VerifyEmail(r.Context(), provider, payload.TokenHash)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	view := sessionView(resp.Session, resp.User, nil, "")
	if resp.User != nil && resp.Session != nil {
		flags := h.roles.Refresh(w, r.Context(), resp.User.ID)
		view.Roles = &flags
	}
	writeSuccess(w, http.StatusOK, view)
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var payload model.EmailRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	if err := h.credentials.ResendEmailVerification(r.Context(), h.gateway.Scope(w, r), payload.Email); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"sent": true})
}

func identityOrError(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthenticated)
		return nil, false
	}
	return identity, true
}

func sessionView(current *model.Session, user *model.User, flags *model.RoleFlags, redirectTo string) model.SessionView {
	view := model.SessionView{
		Authenticated: current != nil && user != nil,
		User:          user,
		Roles:         flags,
		RedirectTo:    redirectTo,
	}
	if current != nil && current.ExpiresAt != nil {
		exp := current.Expiry()
		view.ExpiresAt = &exp
	}
	return view
}
