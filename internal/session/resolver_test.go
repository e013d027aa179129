package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fraccional/internal/model"
)

type fakeProvider struct {
	session    *model.Session
	getErr     error
	refreshed  *model.Session
	refreshErr error
	refreshes  int
}

func (f *fakeProvider) GetSession(context.Context) (*model.Session, error) {
	return f.session, f.getErr
}

func (f *fakeProvider) RefreshSession(context.Context) (*model.Session, error) {
	f.refreshes++
	return f.refreshed, f.refreshErr
}

func sessionExpiringAt(t time.Time) *model.Session {
	exp := t.Unix()
	return &model.Session{AccessToken: "a", RefreshToken: "r", ExpiresAt: &exp}
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestIsExpired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		session *model.Session
		want    bool
	}{
		{"nil session", nil, true},
		{"unknown expiry", &model.Session{AccessToken: "a"}, true},
		{"expires now", sessionExpiringAt(fixedNow), true},
		{"expired", sessionExpiringAt(fixedNow.Add(-time.Second)), true},
		{"valid", sessionExpiringAt(fixedNow.Add(time.Second)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, IsExpired(tt.session, fixedNow))
		})
	}
}

func TestGetValidSession(t *testing.T) {
	t.Parallel()

	valid := sessionExpiringAt(fixedNow.Add(time.Hour))
	expired := sessionExpiringAt(fixedNow.Add(-time.Minute))

	t.Run("no session", func(t *testing.T) {
		p := &fakeProvider{}
		got, err := NewResolver(p, WithClock(func() time.Time { return fixedNow })).GetValidSession(context.Background())
		require.NoError(t, err)
		require.Nil(t, got)
		require.Zero(t, p.refreshes)
	})

	t.Run("valid session is returned unchanged", func(t *testing.T) {
		p := &fakeProvider{session: valid}
		got, err := NewResolver(p, WithClock(func() time.Time { return fixedNow })).GetValidSession(context.Background())
		require.NoError(t, err)
		require.Same(t, valid, got)
		require.Zero(t, p.refreshes)
	})

	t.Run("expired session is refreshed once", func(t *testing.T) {
		fresh := sessionExpiringAt(fixedNow.Add(time.Hour))
		p := &fakeProvider{session: expired, refreshed: fresh}
		got, err := NewResolver(p, WithClock(func() time.Time { return fixedNow })).GetValidSession(context.Background())
		require.NoError(t, err)
		require.Same(t, fresh, got)
		require.Equal(t, 1, p.refreshes)
	})

	t.Run("session without expiry is refreshed", func(t *testing.T) {
		fresh := sessionExpiringAt(fixedNow.Add(time.Hour))
		p := &fakeProvider{session: &model.Session{RefreshToken: "r"}, refreshed: fresh}
		got, err := NewResolver(p, WithClock(func() time.Time { return fixedNow })).GetValidSession(context.Background())
		require.NoError(t, err)
		require.Same(t, fresh, got)
	})

	t.Run("refresh failure means logged out", func(t *testing.T) {
		p := &fakeProvider{session: expired, refreshErr: errors.New("invalid refresh token")}
		got, err := NewResolver(p, WithClock(func() time.Time { return fixedNow })).GetValidSession(context.Background())
		require.NoError(t, err)
		require.Nil(t, got)
		require.Equal(t, 1, p.refreshes)
	})

	t.Run("refresh returning an expired session means logged out", func(t *testing.T) {
		p := &fakeProvider{session: expired, refreshed: expired}
		got, err := NewResolver(p, WithClock(func() time.Time { return fixedNow })).GetValidSession(context.Background())
		require.NoError(t, err)
		require.Nil(t, got)
	})

	t.Run("store error is returned", func(t *testing.T) {
		p := &fakeProvider{getErr: errors.New("cookie jar broken")}
		_, err := NewResolver(p).GetValidSession(context.Background())
		require.Error(t, err)
		require.Zero(t, p.refreshes)
	})
}
