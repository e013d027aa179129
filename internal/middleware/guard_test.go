package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fraccional/internal/session"
)

func redirectTarget(t *testing.T, rec *httptest.ResponseRecorder) *url.URL {
	t.Helper()
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	u, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	return u
}

func serveGuard(g *Guard, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	g.Handler(next).ServeHTTP(rec, req)
	return rec
}

func TestGuardProtectedWithoutCookiesRedirectsToLogin(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())

	for _, path := range []string{"/dashboard", "/profile", "/settings", "/profile/security"} {
		rec := serveGuard(g, path)
		u := redirectTarget(t, rec)
		assert.Equal(t, "/auth/login", u.Path, path)
		assert.Equal(t, path, u.Query().Get("redirectTo"), path)
	}
}

func TestGuardLoginBypass(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())

	rec := serveGuard(g, "/dashboard?from=login")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Bypass only covers the listed paths.
	rec = serveGuard(g, "/profile?from=login")
	assert.Equal(t, "/auth/login", redirectTarget(t, rec).Path)

	cfg := DefaultGuardConfig()
	cfg.AllowLoginBypass = false
	rec = serveGuard(NewGuard(cfg), "/dashboard?from=login")
	assert.Equal(t, "/auth/login", redirectTarget(t, rec).Path)
}

func TestGuardAuthOnlyWithCookieRedirectsToDashboard(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())

	for _, c := range []*http.Cookie{
		{Name: session.AccessTokenCookie, Value: "a"},
		{Name: session.RefreshTokenCookie, Value: "r"},
	} {
		rec := serveGuard(g, "/auth/login", c)
		assert.Equal(t, "/dashboard", redirectTarget(t, rec).Path)

		rec = serveGuard(g, "/auth/signup", c)
		assert.Equal(t, "/dashboard", redirectTarget(t, rec).Path)
	}
}

func TestGuardAllowsAuthenticatedProtected(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())

	rec := serveGuard(g, "/dashboard", &http.Cookie{Name: session.RefreshTokenCookie, Value: "r"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGuardAllowsPublicAndUnguarded(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())

	for _, path := range []string{"/", "/onboarding", "/auth/forgot-password", "/api/v1/profile", "/health", "/static/app.css", "/dashboards"} {
		rec := serveGuard(g, path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestGuardDecideClass(t *testing.T) {
	cfg := DefaultGuardConfig()
	cfg.Protected = append(cfg.Protected, "/dashboard/reports")
	g := NewGuard(cfg)

	d := g.Decide("/dashboard/reports/2026", url.Values{}, true)
	assert.Equal(t, RouteProtected, d.Class)
	assert.True(t, d.Bypass)
	assert.True(t, d.Allowed())

	d = g.Decide("/auth/login", url.Values{}, false)
	assert.Equal(t, RouteAuthOnly, d.Class)
	assert.True(t, d.Allowed())

	d = g.Decide("/", url.Values{}, false)
	assert.Equal(t, RoutePublic, d.Class)
}

func TestGuardFormPostRedirectsWithSeeOther(t *testing.T) {
	g := NewGuard(DefaultGuardConfig())

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.AddCookie(&http.Cookie{Name: session.AccessTokenCookie, Value: "a"})
	rec := httptest.NewRecorder()
	g.Handler(okHandler()).ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))
}
