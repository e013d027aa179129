package supabase

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the access-token claims the application reads. They
// are parsed without signature verification: the provider stays the
// authority and identity is confirmed with GetUser.
type AccessClaims struct {
	Subject   string
	Email     string
	ExpiresAt *int64
}

type accessTokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func ParseAccessToken(token string) (AccessClaims, error) {
	var claims accessTokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return AccessClaims{}, fmt.Errorf("parse access token: %w", err)
	}

	out := AccessClaims{Subject: claims.Subject, Email: claims.Email}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Unix()
		out.ExpiresAt = &exp
	}

	return out, nil
}
