package model

import "time"

// Session is the provider-issued token pair. ExpiresAt is nil when the
// expiry is unknown, which is always treated as expired.
type Session struct {
	AccessToken  string `json:"access_token" yaml:"access_token"`
	RefreshToken string `json:"refresh_token" yaml:"refresh_token"`
	TokenType    string `json:"token_type,omitempty" yaml:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty" yaml:"expires_in,omitempty"`
	ExpiresAt    *int64 `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	User         *User  `json:"user,omitempty" yaml:"-"`
}

// Expiry returns the expiry as a time, or the zero time when unknown.
func (s *Session) Expiry() time.Time {
	if s == nil || s.ExpiresAt == nil {
		return time.Time{}
	}
	return time.Unix(*s.ExpiresAt, 0).UTC()
}

// AuthResponse is what sign-up, sign-in and OTP verification return.
// Session is nil when the provider did not open one (e.g. an unconfirmed
// sign-up).
type AuthResponse struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
}

// SessionView is the token-free session summary exposed over the API.
type SessionView struct {
	Authenticated bool       `json:"authenticated"`
	User          *User      `json:"user,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Roles         *RoleFlags `json:"roles,omitempty"`
	RedirectTo    string     `json:"redirect_to,omitempty"`
}
