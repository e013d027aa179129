package middleware

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"fraccional/internal/session"
)

type RouteClass string

const (
	RouteProtected RouteClass = "protected"
	RouteAuthOnly  RouteClass = "auth_only"
	RouteBypass    RouteClass = "bypass"
	RoutePublic    RouteClass = "public"
)

type GuardConfig struct {
	Protected []string
	AuthOnly  []string
	// Bypass paths may be reached unauthenticated right after login,
	// marked by from=login.
	Bypass           []string
	AllowLoginBypass bool
	// Unguarded prefixes are passed through untouched.
	Unguarded []string
	LoginPath string
	HomePath  string
}

func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Protected:        []string{"/dashboard", "/profile", "/settings"},
		AuthOnly:         []string{"/auth/login", "/auth/signup"},
		Bypass:           []string{"/dashboard"},
		AllowLoginBypass: true,
		Unguarded:        []string{"/api", "/static", "/public", "/health", "/favicon.ico"},
		LoginPath:        "/auth/login",
		HomePath:         "/dashboard",
	}
}

// GuardDecision is the outcome for one path. Redirect is empty when the
// request is allowed.
type GuardDecision struct {
	Class         RouteClass
	Protected     bool
	AuthOnly      bool
	Bypass        bool
	FromLogin     bool
	Authenticated bool
	Redirect      string
}

func (d GuardDecision) Allowed() bool {
	return d.Redirect == ""
}

// Guard redirects page navigations on auth cookie presence. It never
// validates the session; pages do.
type Guard struct {
	cfg GuardConfig
}

func NewGuard(cfg GuardConfig) *Guard {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/auth/login"
	}
	if cfg.HomePath == "" {
		cfg.HomePath = "/dashboard"
	}
	return &Guard{cfg: cfg}
}

func (g *Guard) Decide(path string, query url.Values, authenticated bool) GuardDecision {
	d := GuardDecision{
		Class:         RoutePublic,
		Authenticated: authenticated,
		FromLogin:     query.Get("from") == "login",
	}

	longest := -1
	classify := func(prefixes []string, class RouteClass) bool {
		n := longestMatch(path, prefixes)
		if n > longest {
			longest = n
			d.Class = class
		}
		return n >= 0
	}
	d.Protected = classify(g.cfg.Protected, RouteProtected)
	d.AuthOnly = classify(g.cfg.AuthOnly, RouteAuthOnly)
	d.Bypass = classify(g.cfg.Bypass, RouteBypass)

	switch {
	case d.Protected && !authenticated:
		if d.Bypass && d.FromLogin && g.cfg.AllowLoginBypass {
			return d
		}
		d.Redirect = g.cfg.LoginPath + "?" + url.Values{"redirectTo": {path}}.Encode()
	case d.AuthOnly && authenticated:
		d.Redirect = g.cfg.HomePath
	}

	return d
}

func (g *Guard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if longestMatch(path, g.cfg.Unguarded) >= 0 {
			next.ServeHTTP(w, r)
			return
		}

		d := g.Decide(path, r.URL.Query(), session.HasAuthCookies(r))
		slog.Debug("route guard",
			"path", path,
			"class", d.Class,
			"authenticated", d.Authenticated,
			"from_login", d.FromLogin,
			"redirect", d.Redirect,
		)

		if !d.Allowed() {
			status := http.StatusTemporaryRedirect
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				// Form posts land on the target as a GET.
				status = http.StatusSeeOther
			}
			http.Redirect(w, r, d.Redirect, status)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// longestMatch returns the length of the longest prefix that matches path
// on a segment boundary, or -1.
func longestMatch(path string, prefixes []string) int {
	best := -1
	for _, prefix := range prefixes {
		prefix = strings.TrimRight(prefix, "/")
		if prefix == "" {
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			if len(prefix) > best {
				best = len(prefix)
			}
		}
	}
	return best
}
