package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fraccional/internal/auth"
	"fraccional/internal/config"
	"fraccional/internal/handler"
	"fraccional/internal/model"
	"fraccional/internal/role"
	"fraccional/internal/service"
	"fraccional/internal/session"
	"fraccional/internal/supabase"
)

type healthFunc func(ctx context.Context) error

func (f healthFunc) Health(ctx context.Context) error { return f(ctx) }

type noAssignments struct{}

func (noAssignments) ListAssignments(context.Context, string) ([]model.RoleAssignment, error) {
	return nil, nil
}

func (noAssignments) HasTenant(context.Context, string) (bool, error) {
	return false, nil
}

type noPlans struct{}

func (noPlans) ListActive(context.Context) ([]model.Plan, error) {
	return []model.Plan{{ID: 1, Name: "Básico", MaxUnits: 50}}, nil
}

func (noPlans) FindActive(context.Context, int) (model.Plan, error) {
	return model.Plan{}, model.ErrPlanNotFound
}

func newTestRouter(t *testing.T, health HealthChecker) http.Handler {
	t.Helper()

	provider := new(auth.MockProvider)
	provider.On("GetSession", mock.Anything).Return(nil, nil)
	gateway := auth.NewGateway(func(supabase.SessionStore) auth.Provider { return provider }, session.CookieConfig{})

	issuer, err := role.NewClaimIssuer("router-test-secret", time.Minute)
	require.NoError(t, err)
	roles := handler.NewRoleCookies(role.NewResolver(noAssignments{}), issuer, false)

	credentials := service.NewCredentialService(nil, "")
	tenants := service.NewTenantService(nil, noPlans{}, noAssignments{}, nil)

	pages, err := handler.NewPageHandler(gateway, credentials, tenants, roles)
	require.NoError(t, err)

	cfg := &config.Config{
		RequestTimeout:   5 * time.Second,
		RateLimitRPM:     0,
		AuthRateLimitRPM: 0,
		GuardLoginBypass: true,
	}

	return New(cfg, gateway, Handlers{
		Auth:       handler.NewAuthHandler(gateway, credentials, roles),
		Profile:    handler.NewProfileHandler(credentials, roles),
		Plans:      handler.NewPlanHandler(tenants),
		Onboarding: handler.NewOnboardingHandler(gateway, tenants, roles, nil),
		Pages:      pages,
	}, health)
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHealth(t *testing.T) {
	ok := newTestRouter(t, healthFunc(func(context.Context) error { return nil }))
	rec := serve(ok, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	down := newTestRouter(t, healthFunc(func(context.Context) error { return errors.New("connection refused") }))
	assert.Equal(t, http.StatusServiceUnavailable, serve(down, http.MethodGet, "/health").Code)
}

func TestProtectedPageRedirectsToLogin(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := serve(r, http.MethodGet, "/dashboard")
	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/auth/login?redirectTo=%2Fdashboard", rec.Header().Get("Location"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestAPIWithoutSession(t *testing.T) {
	r := newTestRouter(t, nil)

	rec := serve(r, http.MethodGet, "/api/v1/profile")
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body model.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	require.NotNil(t, body.Error)
	assert.Equal(t, "Usuario no autenticado", body.Error.Message)

	rec = serve(r, http.MethodGet, "/api/v1/auth/session")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"authenticated":false`)
}

func TestPublicRoutes(t *testing.T) {
	r := newTestRouter(t, nil)

	plans := serve(r, http.MethodGet, "/api/v1/plans")
	require.Equal(t, http.StatusOK, plans.Code)
	assert.Contains(t, plans.Body.String(), "Básico")

	login := serve(r, http.MethodGet, "/auth/login")
	require.Equal(t, http.StatusOK, login.Code)
	assert.Contains(t, login.Header().Get("Content-Type"), "text/html")

	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/api/v1/nope").Code)
}
