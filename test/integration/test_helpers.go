//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"fraccional/internal/auth"
	"fraccional/internal/config"
	"fraccional/internal/database"
	"fraccional/internal/event"
	"fraccional/internal/handler"
	"fraccional/internal/repository"
	"fraccional/internal/role"
	"fraccional/internal/router"
	"fraccional/internal/service"
	"fraccional/internal/session"
	"fraccional/internal/supabase"
)

// fakeGoTrue implements the provider endpoints the server calls. Access
// tokens are HS256 JWTs so cookie sessions carry a readable expiry.
type fakeGoTrue struct {
	mu       sync.Mutex
	users    map[string]fakeUser // by email
	access   map[string]string   // access token -> email
	refresh  map[string]string   // refresh token -> email
	tokenTTL time.Duration
}

type fakeUser struct {
	ID       string
	Email    string
	Password string
	Name     string
}

func newFakeGoTrue() *fakeGoTrue {
	return &fakeGoTrue{
		users:    make(map[string]fakeUser),
		access:   make(map[string]string),
		refresh:  make(map[string]string),
		tokenTTL: time.Hour,
	}
}

func (f *fakeGoTrue) addUser(email, password, name string) fakeUser {
	f.mu.Lock()
	defer f.mu.Unlock()

	u := fakeUser{ID: uuid.NewString(), Email: email, Password: password, Name: name}
	f.users[email] = u
	return u
}

func (f *fakeGoTrue) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/auth/v1")
	switch {
	case path == "/token" && r.URL.Query().Get("grant_type") == "password":
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		u, ok := f.users[body.Email]
		if !ok || u.Password != body.Password {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error_code": "invalid_credentials", "msg": "Invalid login credentials"})
			return
		}
		writeJSON(w, http.StatusOK, f.issue(u))

	case path == "/token" && r.URL.Query().Get("grant_type") == "refresh_token":
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		email, ok := f.refresh[body.RefreshToken]
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error_code": "refresh_token_not_found", "msg": "Invalid Refresh Token"})
			return
		}
		delete(f.refresh, body.RefreshToken)
		writeJSON(w, http.StatusOK, f.issue(f.users[email]))

	case path == "/user" && r.Method == http.MethodGet:
		email, ok := f.access[strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")]
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "invalid JWT"})
			return
		}
		writeJSON(w, http.StatusOK, userJSON(f.users[email]))

	case path == "/logout":
		delete(f.access, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
		w.WriteHeader(http.StatusNoContent)

	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"msg": "not found"})
	}
}

func (f *fakeGoTrue) issue(u fakeUser) map[string]any {
	exp := time.Now().Add(f.tokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"exp":   exp.Unix(),
		"jti":   uuid.NewString(),
	})
	access, _ := token.SignedString([]byte("provider-secret"))
	refresh := uuid.NewString()

	f.access[access] = u.Email
	f.refresh[refresh] = u.Email

	return map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_in":    int64(f.tokenTTL.Seconds()),
		"expires_at":    exp.Unix(),
		"user":          userJSON(u),
	}
}

func userJSON(u fakeUser) map[string]any {
	return map[string]any{
		"id":            u.ID,
		"email":         u.Email,
		"user_metadata": map[string]any{"nombre": u.Name},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type testEnv struct {
	server   *httptest.Server
	provider *fakeGoTrue
	db       *database.DB
}

// newTestEnv wires the real router against FRACCIONAL_TEST_DATABASE_URL
// and a fake provider.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := os.Getenv("FRACCIONAL_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("FRACCIONAL_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, database.Config{URL: dsn, MaxConns: 4, MinConns: 0})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.EnsureSchema(ctx))

	provider := newFakeGoTrue()
	providerServer := httptest.NewServer(provider)
	t.Cleanup(providerServer.Close)

	cfg := &config.Config{
		SupabaseURL:      providerServer.URL,
		SupabaseAnonKey:  "anon-key",
		SiteURL:          "http://localhost",
		RequestTimeout:   10 * time.Second,
		RateLimitRPM:     1000,
		AuthRateLimitRPM: 1000,
		CookieSecure:     false,
		RefreshCookieTTL: time.Hour,
		RoleClaimSecret:  "role-secret",
		RoleClaimTTL:     time.Minute,
		GuardLoginBypass: true,
	}

	client, err := supabase.NewClient(supabase.Config{URL: cfg.SupabaseURL, AnonKey: cfg.SupabaseAnonKey})
	require.NoError(t, err)
	gateway := auth.NewGateway(auth.SupabaseBinder(client), session.CookieConfig{RefreshTTL: cfg.RefreshCookieTTL})

	issuer, err := role.NewClaimIssuer(cfg.RoleClaimSecret, cfg.RoleClaimTTL)
	require.NoError(t, err)

	roleRepo := repository.NewRoleRepository(db.Pool)
	roles := handler.NewRoleCookies(role.NewResolver(roleRepo), issuer, false)
	credentials := service.NewCredentialService(repository.NewProfileRepository(db.Pool), cfg.SiteURL)
	tenants := service.NewTenantService(repository.NewTenantRepository(db.Pool), repository.NewPlanRepository(db.Pool), roleRepo, event.NewBus())

	pages, err := handler.NewPageHandler(gateway, credentials, tenants, roles)
	require.NoError(t, err)

	server := httptest.NewServer(router.New(cfg, gateway, router.Handlers{
		Auth:       handler.NewAuthHandler(gateway, credentials, roles),
		Profile:    handler.NewProfileHandler(credentials, roles),
		Plans:      handler.NewPlanHandler(tenants),
		Onboarding: handler.NewOnboardingHandler(gateway, tenants, roles, nil),
		Pages:      pages,
	}, db))
	t.Cleanup(server.Close)

	return &testEnv{server: server, provider: provider, db: db}
}

// newBrowser returns a client that keeps cookies and does not follow
// redirects.
func newBrowser(t *testing.T) *http.Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func postJSON(t *testing.T, client *http.Client, url string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func get(t *testing.T, client *http.Client, url string) *http.Response {
	t.Helper()

	resp, err := client.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type sessionData struct {
	Authenticated bool `json:"authenticated"`
	User          *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Roles *struct {
		IsSystemAdmin bool `json:"is_system_admin"`
		IsTenantAdmin bool `json:"is_tenant_admin"`
	} `json:"roles"`
	RedirectTo string `json:"redirect_to"`
}
