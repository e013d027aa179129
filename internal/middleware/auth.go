package middleware

import (
	"context"
	"net/http"

	"fraccional/internal/auth"
	"fraccional/pkg/apierror"
)

type authenticator interface {
	Authenticate(w http.ResponseWriter, r *http.Request) (*auth.Identity, error)
}

type contextKey string

const identityContextKey contextKey = "auth_identity"

// RequireSession rejects API requests without a valid provider session
// and stores the caller's identity in the request context.
func RequireSession(a authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := a.Authenticate(w, r)
			if err != nil {
				writeError(w, apierror.Unauthorized("Usuario no autenticado"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

func IdentityFromContext(ctx context.Context) (*auth.Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*auth.Identity)
	return identity, ok && identity != nil
}
