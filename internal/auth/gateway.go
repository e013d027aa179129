package auth

import (
	"context"
	"log/slog"
	"net/http"

	"fraccional/internal/model"
	"fraccional/internal/session"
)

// Identity is an authenticated caller.
type Identity struct {
	Session  *model.Session
	User     *model.User
	Provider Provider
}

// Gateway turns an HTTP request into a provider bound to the request's
// cookies.
type Gateway struct {
	bind    Binder
	cookies session.CookieConfig
}

func NewGateway(bind Binder, cookies session.CookieConfig) *Gateway {
	return &Gateway{bind: bind, cookies: cookies}
}

// Scope binds a provider to the cookies of r. Session changes are written
// to w.
func (g *Gateway) Scope(w http.ResponseWriter, r *http.Request) Provider {
	return g.bind(session.NewCookieStore(w, r, g.cookies))
}

// Authenticate validates the request's session, refreshing it when needed,
// and confirms the user with the provider. Any failure yields
// model.ErrUnauthenticated.
func (g *Gateway) Authenticate(w http.ResponseWriter, r *http.Request) (*Identity, error) {
	return Authenticate(r.Context(), g.Scope(w, r))
}

// Forget expires the session cookies of r. Pages call it when a session
// can no longer be validated so the guard stops treating it as present.
func (g *Gateway) Forget(w http.ResponseWriter, r *http.Request) {
	if err := session.NewCookieStore(w, r, g.cookies).Clear(r.Context()); err != nil {
		slog.Warn("session cookies not cleared", "error", err)
	}
}

// Authenticate is the transport-independent form of Gateway.Authenticate.
func Authenticate(ctx context.Context, provider Provider) (*Identity, error) {
	current, err := session.NewResolver(provider).GetValidSession(ctx)
	if err != nil {
		slog.Warn("session store unreadable", "error", err)
		return nil, model.ErrUnauthenticated
	}
	if current == nil {
		return nil, model.ErrUnauthenticated
	}

	user, err := provider.GetUser(ctx)
	if err != nil || user == nil {
		slog.Info("session user rejected by provider", "error", err)
		return nil, model.ErrUnauthenticated
	}

	return &Identity{Session: current, User: user, Provider: provider}, nil
}
