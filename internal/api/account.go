package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/tryon/internal/account"
	"github.com/erazemk/tryon/internal/model"
	"github.com/erazemk/tryon/internal/session"
)

// AccountHandler handles endpoints backed by the account service.
type AccountHandler struct {
	Sessions *session.Manager
}

type sessionResponse struct {
	User *model.User `json:"user"`
}

// Session handles GET /api/session.
func (h *AccountHandler) Session(w http.ResponseWriter, r *http.Request) {
	s := GetSession(r.Context())

	user, err := h.Sessions.Account.GetSession(r.Context(), s.AccessToken)
	if err != nil {
		slog.Error("getting remote session", "user", s.Email, "error", err)
		jsonError(w, http.StatusBadGateway, "account service unavailable")
		return
	}
	jsonResponse(w, http.StatusOK, sessionResponse{User: user})
}

// GetProfile handles GET /api/profile.
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	s := GetSession(r.Context())

	profile, err := h.Sessions.Account.GetProfile(r.Context(), s.AccessToken, s.UserID)
	if account.IsNotFound(err) {
		jsonError(w, http.StatusNotFound, "profile not found")
		return
	}
	if err != nil {
		slog.Error("getting profile", "user", s.Email, "error", err)
		jsonError(w, http.StatusBadGateway, "account service unavailable")
		return
	}
	jsonResponse(w, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/profile.
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	s := GetSession(r.Context())

	var updates account.Profile
	if err := decodeJSON(r, &updates); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(updates) == 0 {
		jsonError(w, http.StatusBadRequest, "no fields to update")
		return
	}

	rows, err := h.Sessions.Account.UpdateProfile(r.Context(), s.AccessToken, s.UserID, updates)
	if err != nil {
		slog.Error("updating profile", "user", s.Email, "error", err)
		jsonError(w, http.StatusBadGateway, "account service unavailable")
		return
	}
	if len(rows) == 0 {
		jsonError(w, http.StatusNotFound, "profile not found")
		return
	}

	slog.Info("profile updated", "user", s.Email)
	jsonResponse(w, http.StatusOK, rows[0])
}

// Logout handles POST /api/auth/logout.
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	s := GetSession(r.Context())

	if err := h.Sessions.End(r.Context(), s); err != nil {
		slog.Error("signing out", "user", s.Email, "error", err)
		jsonError(w, http.StatusBadGateway, "sign-out failed")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}
