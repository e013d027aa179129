package handler

import (
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fraccional/internal/auth"
	"fraccional/internal/model"
	"fraccional/internal/role"
	"fraccional/internal/service"
	"fraccional/internal/supabase"
	"fraccional/pkg/apierror"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	msgGeneric           = "Ocurrió un error, inténtalo de nuevo"
	msgInvalidLogin      = "Correo o contraseña incorrectos"
	msgEmailNotConfirmed = "Debes confirmar tu correo antes de iniciar sesión"
	msgInvalidLink       = "El enlace no es válido o ya expiró"
	profileUpdatedToast  = "profile_updated"
)

// toasts maps the message query parameter to its text.
var toasts = map[string]string{
	"email_verified":    "Correo verificado. Ya puedes iniciar sesión.",
	"password_updated":  "Contraseña actualizada correctamente.",
	"check_email":       "Revisa tu correo para confirmar tu cuenta.",
	"signed_out":        "Sesión cerrada.",
	"reset_sent":        "Te enviamos un enlace para restablecer tu contraseña.",
	profileUpdatedToast: "Perfil actualizado.",
}

var pageNames = []string{
	"landing", "login", "signup", "forgot_password", "reset_password",
	"verify_email", "dashboard", "onboarding", "profile",
}

type pageGateway interface {
	sessionGateway
	Forget(w http.ResponseWriter, r *http.Request)
}

type onboardingService interface {
	planLister
	tenantCreator
}

type pageData struct {
	Title          string
	Toast          string
	Error          string
	RedirectTo     string
	Email          string
	Name           string
	User           *model.User
	Profile        *model.Profile
	Classification model.RoleClassification
	Plans          []model.Plan
	Form           model.CreateTenantRequest
}

// PageHandler serves the server-rendered screens. Guarded pages still
// validate the session themselves; the guard only checks cookie presence.
type PageHandler struct {
	gateway     pageGateway
	credentials *service.CredentialService
	onboarding  onboardingService
	roles       *RoleCookies
	pages       map[string]*template.Template
}

func NewPageHandler(gateway pageGateway, credentials *service.CredentialService, onboarding onboardingService, roles *RoleCookies) (*PageHandler, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &PageHandler{
		gateway:     gateway,
		credentials: credentials,
		onboarding:  onboarding,
		roles:       roles,
		pages:       pages,
	}, nil
}

func (h *PageHandler) Landing(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "landing", pageData{Title: "Inicio"})
}

func (h *PageHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", pageData{
		Title:      "Iniciar sesión",
		RedirectTo: safeRedirect(r.URL.Query().Get("redirectTo")),
	})
}

func (h *PageHandler) Login(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title:      "Iniciar sesión",
		Email:      strings.TrimSpace(r.PostFormValue("email")),
		RedirectTo: safeRedirect(r.PostFormValue("redirectTo")),
	}

	provider := h.gateway.Scope(w, r)
	resp, err := h.credentials.SignIn(r.Context(), provider, data.Email, r.PostFormValue("password"))
	if err != nil {
		data.Error = loginMessage(err)
		h.render(w, r, http.StatusUnauthorized, "login", data)
		return
	}

	user, err := h.credentials.SignedInUser(r.Context(), provider, resp)
	if err != nil {
		slog.Warn("signed in without a user", "error", err)
		http.Redirect(w, r, role.OnboardingPath, http.StatusSeeOther)
		return
	}

	flags := h.roles.Refresh(w, r.Context(), user.ID)
	target := role.LoginRedirect(flags)
	if data.RedirectTo != "" {
		target = data.RedirectTo
	}

	slog.Info("user signed in", "user_id", user.ID, "classification", role.Classify(flags), "redirect", target)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *PageHandler) SignUpForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "signup", pageData{Title: "Crear cuenta"})
}

func (h *PageHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	req := model.SignUpRequest{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Password: r.PostFormValue("password"),
		Name:     strings.TrimSpace(r.PostFormValue("nombre")),
	}

	resp, err := h.credentials.SignUp(r.Context(), h.gateway.Scope(w, r), req)
	if err != nil {
		h.render(w, r, http.StatusBadRequest, "signup", pageData{
			Title: "Crear cuenta",
			Error: formMessage(err),
			Email: req.Email,
			Name:  req.Name,
		})
		return
	}

	if resp.Session != nil {
		http.Redirect(w, r, role.OnboardingPath, http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/auth/verify-email?message=check_email&email="+url.QueryEscape(req.Email), http.StatusSeeOther)
}

func (h *PageHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.credentials.SignOut(r.Context(), h.gateway.Scope(w, r)); err != nil {
		slog.Warn("sign out failed", "error", err)
	}
	h.roles.Clear(w)

	http.Redirect(w, r, "/auth/login?message=signed_out", http.StatusSeeOther)
}

func (h *PageHandler) ForgotPasswordForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "forgot_password", pageData{Title: "Recuperar contraseña"})
}

func (h *PageHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))

	if err := h.credentials.RequestPasswordReset(r.Context(), h.gateway.Scope(w, r), email); err != nil {
		h.render(w, r, http.StatusBadRequest, "forgot_password", pageData{
			Title: "Recuperar contraseña",
			Error: formMessage(err),
			Email: email,
		})
		return
	}

	http.Redirect(w, r, "/auth/forgot-password?message=reset_sent", http.StatusSeeOther)
}

// ResetPasswordForm exchanges a recovery link for a session before showing
// the form.
func (h *PageHandler) ResetPasswordForm(w http.ResponseWriter, r *http.Request) {
	data := pageData{Title: "Nueva contraseña"}

	if tokenHash := r.URL.Query().Get("token_hash"); tokenHash != "" {
		resp, err := h.credentials.VerifyRecovery(r.Context(), h.gateway.Scope(w, r), tokenHash)
		if err != nil || resp.Session == nil {
			slog.Info("recovery link rejected", "error", err)
			data.Error = msgInvalidLink
			h.render(w, r, http.StatusBadRequest, "reset_password", data)
			return
		}
		data.User = resp.User
		h.render(w, r, http.StatusOK, "reset_password", data)
		return
	}

	if identity, err := h.gateway.Authenticate(w, r); err == nil {
		data.User = identity.User
	}
	h.render(w, r, http.StatusOK, "reset_password", data)
}

func (h *PageHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	if _, err := h.credentials.ResetPassword(r.Context(), identity.Provider, r.PostFormValue("password")); err != nil {
		h.render(w, r, http.StatusBadRequest, "reset_password", pageData{
			Title: "Nueva contraseña",
			Error: formMessage(err),
			User:  identity.User,
		})
		return
	}

	http.Redirect(w, r, "/dashboard?message=password_updated", http.StatusSeeOther)
}

// VerifyEmail confirms a sign-up link; without a token it shows the
// "check your inbox" screen.
func (h *PageHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	tokenHash := query.Get("token_hash")
	if tokenHash == "" {
		h.render(w, r, http.StatusOK, "verify_email", pageData{
			Title: "Confirma tu correo",
			Email: query.Get("email"),
		})
		return
	}

	resp, err := h.credentials.VerifyEmail(r.Context(), h.gateway.Scope(w, r), tokenHash)
	if err != nil {
		slog.Info("verification link rejected", "error", err)
		h.render(w, r, http.StatusBadRequest, "verify_email", pageData{
			Title: "Confirma tu correo",
			Error: msgInvalidLink,
		})
		return
	}

	if resp.Session != nil && resp.User != nil {
		flags := h.roles.Refresh(w, r.Context(), resp.User.ID)
		http.Redirect(w, r, role.LoginRedirect(flags), http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, "/auth/login?message=email_verified", http.StatusSeeOther)
}

func (h *PageHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	data := pageData{Title: "Confirma tu correo", Email: email}

	if err := h.credentials.ResendEmailVerification(r.Context(), h.gateway.Scope(w, r), email); err != nil {
		data.Error = formMessage(err)
		h.render(w, r, http.StatusBadRequest, "verify_email", data)
		return
	}

	data.Toast = toasts["check_email"]
	h.render(w, r, http.StatusOK, "verify_email", data)
}

func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	flags := h.roles.Flags(w, r, identity.User.ID)
	h.render(w, r, http.StatusOK, "dashboard", pageData{
		Title:          "Panel",
		User:           identity.User,
		Classification: role.Classify(flags),
	})
}

func (h *PageHandler) OnboardingForm(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	if flags := h.roles.Flags(w, r, identity.User.ID); flags.IsTenantAdmin {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	h.renderOnboarding(w, r, http.StatusOK, identity, model.CreateTenantRequest{}, "")
}

func (h *PageHandler) Onboarding(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	req := model.CreateTenantRequest{
		Name:       strings.TrimSpace(r.PostFormValue("nombre")),
		Address:    strings.TrimSpace(r.PostFormValue("direccion")),
		City:       strings.TrimSpace(r.PostFormValue("ciudad")),
		State:      strings.TrimSpace(r.PostFormValue("estado")),
		PostalCode: strings.TrimSpace(r.PostFormValue("codigoPostal")),
		Phone:      strings.TrimSpace(r.PostFormValue("telefono")),
		Email:      strings.TrimSpace(r.PostFormValue("email")),
		UnitCount:  formInt(r, "numeroCasas"),
		PlanID:     formInt(r, "paqueteId"),
	}

	if _, err := h.onboarding.Create(r.Context(), *identity.User, req); err != nil {
		status, _ := classify(err)
		h.renderOnboarding(w, r, status, identity, req, formMessage(err))
		return
	}

	h.roles.Refresh(w, r.Context(), identity.User.ID)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (h *PageHandler) renderOnboarding(w http.ResponseWriter, r *http.Request, status int, identity *auth.Identity, form model.CreateTenantRequest, errMsg string) {
	plans, err := h.onboarding.ListPlans(r.Context())
	if err != nil {
		slog.Error("plan list failed", "error", err)
		errMsg = msgGeneric
		status = http.StatusInternalServerError
	}

	h.render(w, r, status, "onboarding", pageData{
		Title: "Registra tu condominio",
		Error: errMsg,
		User:  identity.User,
		Plans: plans,
		Form:  form,
	})
}

func (h *PageHandler) Profile(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	h.renderProfile(w, r, http.StatusOK, identity, "")
}

func (h *PageHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	name := r.PostFormValue("nombre")
	phone := r.PostFormValue("telefono")
	upd := model.ProfileUpdate{Name: &name, Phone: &phone}

	if _, err := h.credentials.UpdateProfile(r.Context(), identity.User.ID, upd); err != nil {
		status, _ := classify(err)
		h.renderProfile(w, r, status, identity, formMessage(err))
		return
	}

	http.Redirect(w, r, "/profile?message="+profileUpdatedToast, http.StatusSeeOther)
}

func (h *PageHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	_, err := h.credentials.ChangePassword(r.Context(), identity.Provider, r.PostFormValue("current_password"), r.PostFormValue("new_password"))
	if err != nil {
		status, _ := classify(err)
		h.renderProfile(w, r, status, identity, formMessage(err))
		return
	}

	http.Redirect(w, r, "/profile?message=password_updated", http.StatusSeeOther)
}

func (h *PageHandler) Settings(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/profile", http.StatusFound)
}

func (h *PageHandler) renderProfile(w http.ResponseWriter, r *http.Request, status int, identity *auth.Identity, errMsg string) {
	data := pageData{Title: "Mi perfil", Error: errMsg, User: identity.User}

	profile, err := h.credentials.GetUserProfile(r.Context(), identity.User.ID)
	switch {
	case err == nil:
		data.Profile = &profile
	case isNotFound(err):
	default:
		slog.Error("profile load failed", "user_id", identity.User.ID, "error", err)
		if data.Error == "" {
			data.Error = msgGeneric
		}
	}

	h.render(w, r, status, "profile", data)
}

// requireIdentity validates the session and redirects to the login page
// when it is gone. Stale cookies are expired so the guard lets the login
// page through.
func (h *PageHandler) requireIdentity(w http.ResponseWriter, r *http.Request) (*auth.Identity, bool) {
	identity, err := h.gateway.Authenticate(w, r)
	if err != nil {
		h.gateway.Forget(w, r)
		h.roles.Clear(w)
		http.Redirect(w, r, "/auth/login?redirectTo="+url.QueryEscape(r.URL.Path), http.StatusSeeOther)
		return nil, false
	}
	return identity, true
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	if data.Toast == "" {
		data.Toast = toasts[r.URL.Query().Get("message")]
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := h.pages[name].ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("template render failed", "page", name, "error", err)
	}
}

// safeRedirect keeps only same-site absolute paths. Control bytes are
// rejected outright since browsers drop tab and newline before resolving.
func safeRedirect(target string) string {
	for i := 0; i < len(target); i++ {
		if c := target[i]; c < 0x20 || c == 0x7f || c == '\\' {
			return ""
		}
	}

	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return ""
	}
	if !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return ""
	}
	return target
}

func formInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue(key)))
	if err != nil {
		return 0
	}
	return n
}

func loginMessage(err error) string {
	if authErr, ok := supabase.IsAuthError(err); ok {
		switch authErr.Code {
		case "invalid_credentials", "invalid_grant":
			return msgInvalidLogin
		case "email_not_confirmed":
			return msgEmailNotConfirmed
		}
	}
	return formMessage(err)
}

// formMessage is the inline text for a failed form submission.
func formMessage(err error) string {
	if apiErr, ok := apierror.As(err); ok {
		return apiErr.Message
	}
	if authErr, ok := supabase.IsAuthError(err); ok && authErr.Message != "" {
		return authErr.Message
	}
	return msgGeneric
}

func isNotFound(err error) bool {
	apiErr, ok := apierror.As(err)
	return ok && apiErr.HTTPStatus == http.StatusNotFound
}
