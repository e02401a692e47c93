package api

import (
	"net/http"

	"github.com/erazemk/tryon/internal/session"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(sessions *session.Manager) http.Handler {
	mux := http.NewServeMux()

	itemsHandler := &ItemsHandler{Sessions: sessions}
	accountHandler := &AccountHandler{Sessions: sessions}

	authMW := AuthMiddleware(sessions)

	// Catalog.
	mux.Handle("GET /api/items", authMW(http.HandlerFunc(itemsHandler.List)))
	mux.Handle("POST /api/items", authMW(http.HandlerFunc(itemsHandler.Create)))
	mux.HandleFunc("GET /api/categories", itemsHandler.Categories)

	// Account.
	mux.Handle("GET /api/session", authMW(http.HandlerFunc(accountHandler.Session)))
	mux.Handle("GET /api/profile", authMW(http.HandlerFunc(accountHandler.GetProfile)))
	mux.Handle("PUT /api/profile", authMW(http.HandlerFunc(accountHandler.UpdateProfile)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(accountHandler.Logout)))

	return mux
}
