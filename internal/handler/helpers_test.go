package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fraccional/internal/auth"
	"fraccional/internal/model"
	"fraccional/internal/role"
	"fraccional/internal/service"
)

type fakeGateway struct {
	provider *auth.MockProvider
	identity *auth.Identity
	authErr  error

	authenticated int
	forgotten     int
}

func (g *fakeGateway) Scope(http.ResponseWriter, *http.Request) auth.Provider {
	return g.provider
}

func (g *fakeGateway) Authenticate(http.ResponseWriter, *http.Request) (*auth.Identity, error) {
	g.authenticated++
	if g.authErr != nil {
		return nil, g.authErr
	}
	return g.identity, nil
}

func (g *fakeGateway) Forget(http.ResponseWriter, *http.Request) {
	g.forgotten++
}

type fixedRoles model.RoleFlags

func (f fixedRoles) ResolveRoles(context.Context, string) model.RoleFlags {
	return model.RoleFlags(f)
}

type memProfiles struct {
	mock.Mock
}

func (m *memProfiles) FindByID(ctx context.Context, id string) (model.Profile, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Profile), args.Error(1)
}

func (m *memProfiles) Update(ctx context.Context, id string, upd model.ProfileUpdate) (model.Profile, error) {
	args := m.Called(ctx, id, upd)
	return args.Get(0).(model.Profile), args.Error(1)
}

func (m *memProfiles) Deactivate(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func newRoleCookies(t *testing.T, flags model.RoleFlags) *RoleCookies {
	t.Helper()
	issuer, err := role.NewClaimIssuer("test-secret", 0)
	require.NoError(t, err)
	return NewRoleCookies(fixedRoles(flags), issuer, false)
}

func authedGateway(userID string) *fakeGateway {
	provider := new(auth.MockProvider)
	exp := int64(4102444800)
	return &fakeGateway{
		provider: provider,
		identity: &auth.Identity{
			Session:  &model.Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: &exp},
			User:     &model.User{ID: userID, Email: userID + "@example.com"},
			Provider: provider,
		},
	}
}

func newCredentials(profiles service.ProfileStore) *service.CredentialService {
	return service.NewCredentialService(profiles, "https://app.test")
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *model.APIError `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}
