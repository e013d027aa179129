package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"fraccional/internal/model"
)

func signedAccessToken(t *testing.T, sub string, exp time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": sub + "@example.com",
		"exp":   exp.Unix(),
	})
	signed, err := token.SignedString([]byte("provider-secret"))
	require.NoError(t, err)
	return signed
}

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{URL: server.URL, AnonKey: "anon-key"})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClientValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{AnonKey: "k"})
	require.Error(t, err)

	_, err = NewClient(Config{URL: "https://example.supabase.co"})
	require.Error(t, err)

	_, err = NewClient(Config{URL: "not-a-url", AnonKey: "k"})
	require.Error(t, err)
}

func TestSignUpSendsMetadataAndStoresNothingWithoutSession(t *testing.T) {
	t.Parallel()

	bodies := make(chan map[string]any, 1)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/signup", r.URL.Path)
		require.Equal(t, "anon-key", r.Header.Get("apikey"))
		require.Equal(t, "https://app.test/auth/login", r.URL.Query().Get("redirect_to"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies <- body
		writeJSON(w, http.StatusOK, map[string]any{"id": "123", "email": "test@example.com"})
	}))

	store := NewMemoryStore(nil)
	resp, err := client.Auth(store).SignUp(context.Background(), SignUpParams{
		Email:    "test@example.com",
		Password: "password123",
		Options: SignUpOptions{
			Data:            map[string]any{"nombre": "Test User"},
			EmailRedirectTo: "https://app.test/auth/login",
		},
	})
	require.NoError(t, err)
	require.Equal(t, "123", resp.User.ID)
	require.Nil(t, resp.Session)

	received := <-bodies
	require.Equal(t, "test@example.com", received["email"])
	require.Equal(t, map[string]any{"nombre": "Test User"}, received["data"])

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestSignInStoresSessionWithExpiry(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Unix()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/token", r.URL.Path)
		require.Equal(t, "password", r.URL.Query().Get("grant_type"))
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access",
			"refresh_token": "refresh",
			"token_type":    "bearer",
			"expires_in":    3600,
			"expires_at":    exp,
			"user":          map[string]any{"id": "u1", "email": "a@example.com"},
		})
	}))

	store := NewMemoryStore(nil)
	resp, err := client.Auth(store).SignInWithPassword(context.Background(), "a@example.com", "secret")
	require.NoError(t, err)
	require.NotNil(t, resp.Session)
	require.Equal(t, exp, *resp.Session.ExpiresAt)
	require.Equal(t, "u1", resp.User.ID)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, "refresh", stored.RefreshToken)
}

func TestSignInProviderErrorIsVerbatim(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":       400,
			"error_code": "invalid_credentials",
			"msg":        "Invalid login credentials",
		})
	}))

	_, err := client.Auth(NewMemoryStore(nil)).SignInWithPassword(context.Background(), "a@example.com", "bad")
	authErr, ok := IsAuthError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadRequest, authErr.Status)
	require.Equal(t, "invalid_credentials", authErr.Code)
	require.Equal(t, "Invalid login credentials", authErr.Error())
}

func TestRefreshSessionUsesStoredRefreshToken(t *testing.T) {
	t.Parallel()

	newAccess := signedAccessToken(t, "u1", time.Now().Add(time.Hour))
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "old-refresh", body["refresh_token"])
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  newAccess,
			"refresh_token": "new-refresh",
		})
	}))

	store := NewMemoryStore(&model.Session{AccessToken: "stale", RefreshToken: "old-refresh"})
	session, err := client.Auth(store).RefreshSession(context.Background())
	require.NoError(t, err)
	require.Equal(t, "new-refresh", session.RefreshToken)
	require.NotNil(t, session.ExpiresAt, "expiry falls back to the access token exp claim")

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, newAccess, stored.AccessToken)
}

func TestRefreshSessionWithoutSession(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Fatal("provider must not be called")
	}))

	_, err := client.Auth(NewMemoryStore(nil)).RefreshSession(context.Background())
	require.ErrorIs(t, err, ErrSessionMissing)
}

func TestSignOutClearsStoreEvenWhenSessionIsDead(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/logout", r.URL.Path)
		require.Equal(t, "Bearer access", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "JWT expired"})
	}))

	store := NewMemoryStore(&model.Session{AccessToken: "access", RefreshToken: "refresh"})
	require.NoError(t, client.Auth(store).SignOut(context.Background()))

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, stored)
}

func TestUpdateUserAndGetUserSendBearer(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/user", r.URL.Path)
		require.Equal(t, "Bearer access", r.Header.Get("Authorization"))
		if r.Method == http.MethodPut {
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, map[string]any{"password": "n3w-pass"}, body)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"id":            "u1",
			"email":         "a@example.com",
			"user_metadata": map[string]any{"nombre": "Ana"},
		})
	}))

	auth := client.Auth(NewMemoryStore(&model.Session{AccessToken: "access"}))

	user, err := auth.UpdateUser(context.Background(), UserAttributes{Password: "n3w-pass"})
	require.NoError(t, err)
	require.Equal(t, "u1", user.ID)

	user, err = auth.GetUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Ana", user.DisplayName())
}

func TestGetUserWithoutSession(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, http.NotFoundHandler())
	_, err := client.Auth(NewMemoryStore(nil)).GetUser(context.Background())
	require.ErrorIs(t, err, ErrSessionMissing)
}

func TestVerifyResendAndRecoverPayloads(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	seen := map[string]map[string]string{}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		mu.Lock()
		seen[r.URL.Path] = body
		mu.Unlock()

		switch r.URL.Path {
		case "/auth/v1/verify":
			writeJSON(w, http.StatusOK, map[string]any{
				"access_token":  "verified",
				"refresh_token": "r",
				"expires_in":    60,
				"user":          map[string]any{"id": "u1"},
			})
		case "/auth/v1/recover":
			require.Equal(t, "https://app.test/auth/reset-password", r.URL.Query().Get("redirect_to"))
			writeJSON(w, http.StatusOK, map[string]any{})
		default:
			writeJSON(w, http.StatusOK, map[string]any{})
		}
	}))

	store := NewMemoryStore(nil)
	auth := client.Auth(store)
	ctx := context.Background()

	resp, err := auth.VerifyOTP(ctx, VerifyOTPParams{TokenHash: "hash", Type: OTPTypeEmail})
	require.NoError(t, err)
	require.NotNil(t, resp.Session.ExpiresAt)

	require.NoError(t, auth.Resend(ctx, ResendParams{Type: ResendSignup, Email: "a@example.com"}))
	require.NoError(t, auth.ResetPasswordForEmail(ctx, "a@example.com", "https://app.test/auth/reset-password"))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, map[string]string{"type": "email", "token_hash": "hash"}, seen["/auth/v1/verify"])
	require.Equal(t, map[string]string{"type": "signup", "email": "a@example.com"}, seen["/auth/v1/resend"])
	require.Equal(t, map[string]string{"email": "a@example.com"}, seen["/auth/v1/recover"])
}

func TestParseAccessToken(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	claims, err := ParseAccessToken(signedAccessToken(t, "u9", exp))
	require.NoError(t, err)
	require.Equal(t, "u9", claims.Subject)
	require.Equal(t, "u9@example.com", claims.Email)
	require.Equal(t, exp.Unix(), *claims.ExpiresAt)

	_, err = ParseAccessToken("garbage")
	require.Error(t, err)
}
