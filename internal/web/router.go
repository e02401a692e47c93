package web

import (
	"net/http"

	"github.com/erazemk/tryon/internal/session"
	webembed "github.com/erazemk/tryon/web"
)

// NewRouter creates the web page router with all page routes registered.
func NewRouter(sessions *session.Manager, opts Options) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		Sessions:  sessions,
		Templates: templates,
		Options:   opts,
	}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(sessions, opts.SecureCookies)

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /auth/{provider}", s.OAuthStart)
	mux.HandleFunc("GET /auth/callback", s.OAuthCallback)

	// Authenticated routes.
	mux.Handle("POST /logout", cookieAuth(http.HandlerFunc(s.Logout)))
	mux.Handle("GET /{$}", cookieAuth(http.HandlerFunc(s.Dashboard)))

	mux.Handle("GET /closet", cookieAuth(http.HandlerFunc(s.ClosetPage)))
	mux.Handle("POST /closet/add", cookieAuth(http.HandlerFunc(s.AddItemOpen)))
	mux.Handle("POST /closet/add/fields", cookieAuth(http.HandlerFunc(s.AddItemFields)))
	mux.Handle("POST /closet/add/image", cookieAuth(http.HandlerFunc(s.AddItemImage)))
	mux.Handle("POST /closet/add/image/clear", cookieAuth(http.HandlerFunc(s.AddItemClearImage)))
	mux.Handle("POST /closet/add/cancel", cookieAuth(http.HandlerFunc(s.AddItemCancel)))

	for path := range comingSoon {
		mux.Handle("GET "+path, cookieAuth(http.HandlerFunc(s.ComingSoon)))
	}

	return mux, nil
}
