package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"fraccional/internal/model"
	"fraccional/internal/supabase"
)

const (
	AccessTokenCookie  = "sb-access-token"
	RefreshTokenCookie = "sb-refresh-token"

	DefaultRefreshCookieTTL = 30 * 24 * time.Hour
)

type CookieConfig struct {
	Secure     bool
	Domain     string
	RefreshTTL time.Duration
}

// HasAuthCookies reports whether either provider cookie is present. It is
// a presence check only.
func HasAuthCookies(r *http.Request) bool {
	return cookieValue(r, AccessTokenCookie) != "" || cookieValue(r, RefreshTokenCookie) != ""
}

// CookieStore keeps one browser's provider session in its cookies for the
// duration of a request. Writes are visible to later loads in the same
// request.
type CookieStore struct {
	w   http.ResponseWriter
	r   *http.Request
	cfg CookieConfig

	mu      sync.Mutex
	written bool
	current *model.Session
}

func NewCookieStore(w http.ResponseWriter, r *http.Request, cfg CookieConfig) *CookieStore {
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshCookieTTL
	}
	return &CookieStore{w: w, r: r, cfg: cfg}
}

var _ supabase.SessionStore = (*CookieStore)(nil)

func (s *CookieStore) Load(_ context.Context) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.written {
		return copySession(s.current), nil
	}

	access := cookieValue(s.r, AccessTokenCookie)
	refresh := cookieValue(s.r, RefreshTokenCookie)
	if access == "" && refresh == "" {
		return nil, nil
	}

	session := &model.Session{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}
	if access != "" {
		// An unreadable token leaves the expiry unknown, which forces a refresh.
		if claims, err := supabase.ParseAccessToken(access); err == nil {
			session.ExpiresAt = claims.ExpiresAt
		}
	}

	return session, nil
}

func (s *CookieStore) Save(_ context.Context, session *model.Session) error {
	if session == nil {
		return s.Clear(context.Background())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	maxAge := int(s.cfg.RefreshTTL.Seconds())
	http.SetCookie(s.w, s.cookie(AccessTokenCookie, session.AccessToken, maxAge))
	http.SetCookie(s.w, s.cookie(RefreshTokenCookie, session.RefreshToken, maxAge))

	s.written = true
	s.current = copySession(session)
	return nil
}

func (s *CookieStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	http.SetCookie(s.w, s.cookie(AccessTokenCookie, "", -1))
	http.SetCookie(s.w, s.cookie(RefreshTokenCookie, "", -1))

	s.written = true
	s.current = nil
	return nil
}

func (s *CookieStore) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   s.cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func copySession(session *model.Session) *model.Session {
	if session == nil {
		return nil
	}
	out := *session
	if session.ExpiresAt != nil {
		exp := *session.ExpiresAt
		out.ExpiresAt = &exp
	}
	return &out
}
