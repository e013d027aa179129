package handler

import (
	"context"
	"log/slog"
	"net/http"

	"fraccional/internal/model"
	"fraccional/internal/role"
)

type roleResolver interface {
	ResolveRoles(ctx context.Context, userID string) model.RoleFlags
}

// RoleCookies keeps the signed role claim in sync with the resolver.
type RoleCookies struct {
	resolver roleResolver
	issuer   *role.ClaimIssuer
	secure   bool
}

func NewRoleCookies(resolver roleResolver, issuer *role.ClaimIssuer, secure bool) *RoleCookies {
	return &RoleCookies{resolver: resolver, issuer: issuer, secure: secure}
}

// Flags trusts a valid claim for userID and otherwise resolves the roles
// and reissues the claim.
func (c *RoleCookies) Flags(w http.ResponseWriter, r *http.Request, userID string) model.RoleFlags {
	if cookie, err := r.Cookie(role.ClaimCookie); err == nil && cookie.Value != "" {
		if flags, err := c.issuer.Verify(cookie.Value, userID); err == nil {
			return flags
		}
	}
	return c.Refresh(w, r.Context(), userID)
}

// Refresh re-derives the roles and writes a new claim.
func (c *RoleCookies) Refresh(w http.ResponseWriter, ctx context.Context, userID string) model.RoleFlags {
	flags := c.resolver.ResolveRoles(ctx, userID)

	token, err := c.issuer.Issue(userID, flags)
	if err != nil {
		slog.Error("role claim issue failed", "user_id", userID, "error", err)
		return flags
	}

	http.SetCookie(w, &http.Cookie{
		Name:     role.ClaimCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.issuer.TTL().Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return flags
}

func (c *RoleCookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     role.ClaimCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
