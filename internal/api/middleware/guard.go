package middleware

import (
	"net/http"
	"path"
	"strings"

	"github.com/dvloznov/acct-ai/internal/session"
)

// Guard describes which pages need a session and where to send visitors.
type Guard struct {
	ProtectedPrefixes []string
	EntryPaths        []string
	SignInPath        string
	HomePath          string
}

// DefaultGuard protects /dashboard and bounces signed-in users off the
// sign-in and sign-up pages.
func DefaultGuard() Guard {
	return Guard{
		ProtectedPrefixes: []string{"/dashboard"},
		EntryPaths:        []string{"/login", "/signup"},
		SignInPath:        "/login",
		HomePath:          "/dashboard",
	}
}

// Decide returns the redirect target for a request to p, if any.
// It depends only on its arguments.
func (g Guard) Decide(p string, hasSession bool) (string, bool) {
	p = cleanPath(p)

	if !hasSession {
		for _, prefix := range g.ProtectedPrefixes {
			if underPrefix(p, prefix) {
				return g.SignInPath, true
			}
		}
		return "", false
	}

	for _, entry := range g.EntryPaths {
		if underPrefix(p, entry) {
			return g.HomePath, true
		}
	}
	return "", false
}

// RouteGuard redirects page requests according to g.
func RouteGuard(g Guard, store session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if target, redirect := g.Decide(r.URL.Path, store.HasSession(r)); redirect {
				http.Redirect(w, r, target, http.StatusTemporaryRedirect)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession answers 401 for API calls made without a session.
func RequireSession(store session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !store.HasSession(r) {
				WriteError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func cleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// underPrefix matches whole path segments, so /dashboards is not under /dashboard.
func underPrefix(p, prefix string) bool {
	prefix = cleanPath(prefix)
	if prefix == "/" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
