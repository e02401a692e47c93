package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/tryon/internal/model"
	"github.com/erazemk/tryon/internal/session"
)

type webContextKey string

const webSessionKey webContextKey = "websession"

const (
	tokenCookie    = "token"
	verifierCookie = "oauth_verifier"
)

// CookieAuthMiddleware resolves the session cookie to a live session and adds
// it to the context. Anything else is sent to the login page.
func CookieAuthMiddleware(sessions *session.Manager, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(tokenCookie)
			if err != nil || cookie.Value == "" {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			s, err := sessions.Resolve(r.Context(), cookie.Value)
			if err != nil {
				if !errors.Is(err, session.ErrUnauthenticated) {
					slog.Error("failed to resolve session", "error", err)
				}
				clearCookie(w, tokenCookie, "/", secure)
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), webSessionKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// setAuthCookie stores the session token. Lax, not Strict, so the cookie
// survives the cross-site redirect chain that ends an OAuth sign-in.
func setAuthCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400, // 24 hours
	})
}

// clearCookie clears a cookie with consistent attributes.
func clearCookie(w http.ResponseWriter, name, path string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetWebSession retrieves the session from web context.
func GetWebSession(ctx context.Context) *model.Session {
	s, _ := ctx.Value(webSessionKey).(*model.Session)
	return s
}
