package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fraccional/internal/model"
	"fraccional/internal/session"
	"fraccional/internal/supabase"
)

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	exp := time.Now().Add(time.Hour).Unix()
	valid := &model.Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: &exp}

	t.Run("valid session and user", func(t *testing.T) {
		p := new(MockProvider)
		p.On("GetSession", mock.Anything).Return(valid, nil)
		p.On("GetUser", mock.Anything).Return(&model.User{ID: "u1"}, nil)

		identity, err := Authenticate(context.Background(), p)
		require.NoError(t, err)
		assert.Equal(t, "u1", identity.User.ID)
		assert.Same(t, valid, identity.Session)
		p.AssertExpectations(t)
	})

	t.Run("no session", func(t *testing.T) {
		p := new(MockProvider)
		p.On("GetSession", mock.Anything).Return(nil, nil)

		_, err := Authenticate(context.Background(), p)
		require.ErrorIs(t, err, model.ErrUnauthenticated)
		p.AssertNotCalled(t, "GetUser", mock.Anything)
	})

	t.Run("expired session that cannot be refreshed", func(t *testing.T) {
		past := time.Now().Add(-time.Minute).Unix()
		p := new(MockProvider)
		p.On("GetSession", mock.Anything).Return(&model.Session{RefreshToken: "r", ExpiresAt: &past}, nil)
		p.On("RefreshSession", mock.Anything).Return(nil, errors.New("Invalid Refresh Token"))

		_, err := Authenticate(context.Background(), p)
		require.ErrorIs(t, err, model.ErrUnauthenticated)
		p.AssertExpectations(t)
	})

	t.Run("user rejected by provider", func(t *testing.T) {
		p := new(MockProvider)
		p.On("GetSession", mock.Anything).Return(valid, nil)
		p.On("GetUser", mock.Anything).Return(nil, errors.New("user not found"))

		_, err := Authenticate(context.Background(), p)
		require.ErrorIs(t, err, model.ErrUnauthenticated)
	})
}

func TestGatewayForgetExpiresCookies(t *testing.T) {
	t.Parallel()

	g := NewGateway(func(supabase.SessionStore) Provider { return new(MockProvider) }, session.CookieConfig{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: session.RefreshTokenCookie, Value: "stale"})

	g.Forget(rec, req)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	for _, c := range cookies {
		assert.Equal(t, -1, c.MaxAge)
	}
}
