package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/erazemk/tryon/internal/account"
)

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(tokenCookie); err == nil {
		if _, err := s.Sessions.Resolve(r.Context(), cookie.Value); err == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}
	s.renderLogin(w, http.StatusOK, "")
}

func (s *Server) renderLogin(w http.ResponseWriter, status int, message string) {
	s.Templates.RenderStatus(w, status, "login.html", &struct {
		PageData
		Provider string
	}{
		PageData: PageData{Title: "Sign in", Error: message},
		Provider: s.Options.Provider,
	})
}

// OAuthStart handles POST /auth/{provider}. It sends the browser to the
// account service and keeps the PKCE verifier in a short-lived cookie.
func (s *Server) OAuthStart(w http.ResponseWriter, r *http.Request) {
	provider := r.PathValue("provider")
	if provider != s.Options.Provider {
		http.NotFound(w, r)
		return
	}

	opts := account.OAuthOptions{RedirectTo: s.Options.CallbackURL}
	if provider == "google" {
		opts = account.GoogleOptions(s.Options.CallbackURL)
	}

	start, err := s.Sessions.Account.SignInWithOAuth(provider, opts)
	if err != nil {
		slog.Error("failed to start sign-in", "provider", provider, "error", err)
		s.renderLogin(w, http.StatusInternalServerError, "Could not start sign-in. Please try again.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     verifierCookie,
		Value:    start.Verifier,
		Path:     "/auth/callback",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   s.Options.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, start.URL, http.StatusSeeOther)
}

// OAuthCallback handles GET /auth/callback.
func (s *Server) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if msg := q.Get("error_description"); msg != "" || q.Get("error") != "" {
		slog.Warn("sign-in rejected by provider", "error", q.Get("error"), "description", msg)
		s.renderLogin(w, http.StatusUnauthorized, "Sign-in was cancelled or rejected.")
		return
	}

	code := q.Get("code")
	cookie, err := r.Cookie(verifierCookie)
	if code == "" || err != nil || cookie.Value == "" {
		s.renderLogin(w, http.StatusBadRequest, "Sign-in expired. Please try again.")
		return
	}
	clearCookie(w, verifierCookie, "/auth/callback", s.Options.SecureCookies)

	remote, err := s.Sessions.Account.ExchangeCode(r.Context(), code, cookie.Value)
	if err != nil {
		slog.Error("failed to exchange sign-in code", "error", err)
		s.renderLogin(w, http.StatusBadGateway, "Could not complete sign-in. Please try again.")
		return
	}

	token, sess, err := s.Sessions.Start(r.Context(), remote)
	if err != nil {
		slog.Error("failed to start session", "user", remote.User.Email, "error", err)
		s.renderLogin(w, http.StatusInternalServerError, "Could not complete sign-in. Please try again.")
		return
	}

	slog.Info("user signed in", "user", sess.Email)
	setAuthCookie(w, token, s.Options.SecureCookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout. A failed remote sign-out keeps the session and
// returns the user to the page they were on.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	sess := GetWebSession(r.Context())

	if err := s.Sessions.End(r.Context(), sess); err != nil {
		slog.Error("sign-out failed", "user", sess.Email, "error", err)
		http.Redirect(w, r, localPath(r.FormValue("return")), http.StatusSeeOther)
		return
	}

	clearCookie(w, tokenCookie, "/", s.Options.SecureCookies)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// localPath returns p if it is a path on this site, and "/" otherwise.
func localPath(p string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	return p
}
