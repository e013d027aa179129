//go:build integration

package integration

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp := get(t, http.DefaultClient, env.server.URL+"/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginSessionOnboardingLogout(t *testing.T) {
	env := newTestEnv(t)
	env.provider.addUser("owner@example.com", "secret-pw", "Owner")
	browser := newBrowser(t)

	bad := postJSON(t, browser, env.server.URL+"/api/v1/auth/login", map[string]string{
		"email": "owner@example.com", "password": "nope",
	})
	require.Equal(t, http.StatusBadRequest, bad.StatusCode)
	badBody := decode[envelope[any]](t, bad)
	require.NotNil(t, badBody.Error)
	assert.Equal(t, "Invalid login credentials", badBody.Error.Message)

	login := postJSON(t, browser, env.server.URL+"/api/v1/auth/login", map[string]string{
		"email": "owner@example.com", "password": "secret-pw",
	})
	require.Equal(t, http.StatusOK, login.StatusCode)
	loggedIn := decode[envelope[sessionData]](t, login)
	require.True(t, loggedIn.Data.Authenticated)
	assert.Equal(t, "/onboarding", loggedIn.Data.RedirectTo, "a user without roles onboards first")

	current := decode[envelope[sessionData]](t, get(t, browser, env.server.URL+"/api/v1/auth/session"))
	require.True(t, current.Data.Authenticated)
	assert.Equal(t, "owner@example.com", current.Data.User.Email)

	page := get(t, browser, env.server.URL+"/auth/login")
	require.Equal(t, http.StatusTemporaryRedirect, page.StatusCode, "signed-in users skip the login page")
	assert.Equal(t, "/dashboard", page.Header.Get("Location"))

	onboard := postJSON(t, browser, env.server.URL+"/api/v1/onboarding/condominiums", map[string]any{
		"nombre":      "Las Palmas",
		"direccion":   "Av. Principal 100",
		"ciudad":      "Mérida",
		"estado":      "Yucatán",
		"numeroCasas": 3,
		"paqueteId":   1,
	})
	require.Equal(t, http.StatusOK, onboard.StatusCode)
	created := decode[struct {
		Success bool `json:"success"`
		Tenant  struct {
			ID string `json:"id"`
		} `json:"fraccionamiento"`
	}](t, onboard)
	require.True(t, created.Success)
	require.NotEmpty(t, created.Tenant.ID)

	var units int
	require.NoError(t, env.db.Pool.QueryRow(t.Context(), "SELECT count(*) FROM casas WHERE fraccionamiento_id = $1", created.Tenant.ID).Scan(&units))
	assert.Equal(t, 3, units)

	again := postJSON(t, browser, env.server.URL+"/api/v1/onboarding/condominiums", map[string]any{
		"nombre": "Otra", "direccion": "x", "ciudad": "x", "estado": "x", "numeroCasas": 1, "paqueteId": 1,
	})
	require.Equal(t, http.StatusBadRequest, again.StatusCode)
	assert.Equal(t, "Usuario ya tiene un condominio asignado", decode[struct {
		Error string `json:"error"`
	}](t, again).Error)

	relogin := postJSON(t, browser, env.server.URL+"/api/v1/auth/login", map[string]string{
		"email": "owner@example.com", "password": "secret-pw",
	})
	reloggedIn := decode[envelope[sessionData]](t, relogin)
	require.NotNil(t, reloggedIn.Data.Roles)
	assert.True(t, reloggedIn.Data.Roles.IsTenantAdmin)
	assert.Equal(t, "/dashboard?from=login", reloggedIn.Data.RedirectTo)

	logout := postJSON(t, browser, env.server.URL+"/api/v1/auth/logout", nil)
	require.Equal(t, http.StatusOK, logout.StatusCode)

	after := decode[envelope[sessionData]](t, get(t, browser, env.server.URL+"/api/v1/auth/session"))
	assert.False(t, after.Data.Authenticated)
}

func TestProtectedRoutesWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	browser := newBrowser(t)

	api := get(t, browser, env.server.URL+"/api/v1/profile")
	require.Equal(t, http.StatusUnauthorized, api.StatusCode)

	page := get(t, browser, env.server.URL+"/dashboard")
	require.Equal(t, http.StatusTemporaryRedirect, page.StatusCode)
	loc, err := url.Parse(page.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth/login", loc.Path)
	assert.Equal(t, "/dashboard", loc.Query().Get("redirectTo"))
}

func TestPageLoginFollowsRedirectTo(t *testing.T) {
	env := newTestEnv(t)
	env.provider.addUser("page@example.com", "pw-123456", "Page")
	browser := newBrowser(t)

	form := url.Values{"email": {"page@example.com"}, "password": {"pw-123456"}, "redirectTo": {"/profile"}}
	resp, err := browser.Post(env.server.URL+"/auth/login", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/profile", resp.Header.Get("Location"))

	profile := get(t, browser, env.server.URL+"/profile")
	require.Equal(t, http.StatusOK, profile.StatusCode)
}
