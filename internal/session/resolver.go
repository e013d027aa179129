// Package session decides whether a provider session is usable and keeps
// long-lived clients' sessions fresh.
package session

import (
	"context"
	"log/slog"
	"time"

	"fraccional/internal/model"
)

// Provider is the part of the auth provider the resolver needs.
type Provider interface {
	GetSession(ctx context.Context) (*model.Session, error)
	RefreshSession(ctx context.Context) (*model.Session, error)
}

// IsExpired reports whether session can no longer be used at now. An
// unknown expiry counts as expired.
func IsExpired(session *model.Session, now time.Time) bool {
	if session == nil || session.ExpiresAt == nil {
		return true
	}
	return *session.ExpiresAt <= now.Unix()
}

type Resolver struct {
	provider Provider
	now      func() time.Time
}

type ResolverOption func(*Resolver)

// WithClock overrides the time source used for expiry decisions.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

func NewResolver(provider Provider, opts ...ResolverOption) *Resolver {
	r := &Resolver{provider: provider, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetValidSession returns the current session, refreshing it once if it
// has expired. A nil session with a nil error means logged out. Only a
// failure to read the stored session is returned as an error.
func (r *Resolver) GetValidSession(ctx context.Context) (*model.Session, error) {
	current, err := r.provider.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	if !IsExpired(current, r.now()) {
		return current, nil
	}

	refreshed, err := r.provider.RefreshSession(ctx)
	if err != nil {
		slog.Info("session refresh failed", "error", err)
		return nil, nil
	}
	if IsExpired(refreshed, r.now()) {
		slog.Warn("provider returned an expired session on refresh")
		return nil, nil
	}

	return refreshed, nil
}
