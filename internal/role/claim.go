package role

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"

	"fraccional/internal/model"
)

const (
	ClaimCookie     = "fr-role"
	DefaultClaimTTL = 15 * time.Minute

	claimIssuer  = "fraccional"
	claimKeyInfo = "fraccional role claim v1"
)

var ErrInvalidClaim = errors.New("invalid role claim")

type Claims struct {
	SystemAdmin bool `json:"sys"`
	TenantAdmin bool `json:"ten"`
	jwt.RegisteredClaims
}

// ClaimIssuer signs a user's role flags into a short-lived token so pages
// do not query assignments on every navigation.
type ClaimIssuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewClaimIssuer(secret string, ttl time.Duration) (*ClaimIssuer, error) {
	if secret == "" {
		return nil, errors.New("role claim secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}

	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(claimKeyInfo)), key); err != nil {
		return nil, fmt.Errorf("derive role claim key: %w", err)
	}

	return &ClaimIssuer{key: key, ttl: ttl, now: time.Now}, nil
}

func (i *ClaimIssuer) TTL() time.Duration {
	return i.ttl
}

func (i *ClaimIssuer) Issue(userID string, flags model.RoleFlags) (string, error) {
	now := i.now()
	claims := Claims{
		SystemAdmin: flags.IsSystemAdmin,
		TenantAdmin: flags.IsTenantAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    claimIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign role claim: %w", err)
	}
	return signed, nil
}

// Verify returns the flags of a valid claim issued for userID.
func (i *ClaimIssuer) Verify(token string, userID string) (model.RoleFlags, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return i.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(claimIssuer),
		jwt.WithSubject(userID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return model.RoleFlags{}, fmt.Errorf("%w: %v", ErrInvalidClaim, err)
	}

	return model.RoleFlags{IsSystemAdmin: claims.SystemAdmin, IsTenantAdmin: claims.TenantAdmin}, nil
}
