// Package accounttest provides an in-process fake of the account service for
// tests.
package accounttest

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"maps"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/erazemk/tryon/internal/model"
)

// Key is the API key the fake accepts.
const Key = "test-anon-key"

type grant struct {
	challenge string
	user      model.User
}

// Server is a fake account service backed by httptest.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	grants   map[string]grant
	tokens   map[string]model.User
	profiles map[string]map[string]any
	failures map[string]int
}

// NewServer starts a fake account service. It is closed with t.Cleanup by
// the caller.
func NewServer() *Server {
	s := &Server{
		grants:   make(map[string]grant),
		tokens:   make(map[string]model.User),
		profiles: make(map[string]map[string]any),
		failures: make(map[string]int),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", s.handleToken)
	mux.HandleFunc("POST /auth/v1/logout", s.handleLogout)
	mux.HandleFunc("GET /auth/v1/user", s.handleUser)
	mux.HandleFunc("GET /rest/v1/profiles", s.handleGetProfile)
	mux.HandleFunc("PATCH /rest/v1/profiles", s.handleUpdateProfile)

	s.Server = httptest.NewServer(s.requireKey(mux))
	return s
}

// Authorize plays the browser side of a redirect sign-in: it reads the PKCE
// challenge from authURL and returns a code that signs in u.
func (s *Server) Authorize(authURL string, u model.User) (string, error) {
	parsed, err := url.Parse(authURL)
	if err != nil {
		return "", err
	}
	code := randomString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.grants[code] = grant{challenge: parsed.Query().Get("code_challenge"), user: u}
	return code, nil
}

// SignIn issues an access token for u directly.
func (s *Server) SignIn(u model.User) string {
	token := "access-" + randomString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = u
	return token
}

// Expire makes the service reject token from now on.
func (s *Server) Expire(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// SetProfile stores the profile row for userID.
func (s *Server) SetProfile(userID string, fields map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := maps.Clone(fields)
	if row == nil {
		row = make(map[string]any)
	}
	row["id"] = userID
	s.profiles[userID] = row
}

// Profile returns a copy of the stored profile row for userID.
func (s *Server) Profile(userID string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.profiles[userID])
}

// FailNext makes the next request to path answer status.
func (s *Server) FailNext(path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = status
}

// SignedIn reports whether token is still accepted.
func (s *Server) SignedIn(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tokens[token]
	return ok
}

func (s *Server) requireKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != Key {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "No API key found in request"})
			return
		}

		s.mu.Lock()
		status, fail := s.failures[r.URL.Path]
		delete(s.failures, r.URL.Path)
		s.mu.Unlock()
		if fail {
			writeJSON(w, status, map[string]any{"code": "unexpected_failure", "msg": "injected failure"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) user(r *http.Request) (model.User, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return model.User{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.tokens[token]
	return u, ok
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("grant_type") != "pkce" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error_code": "validation_failed", "msg": "unsupported grant type"})
		return
	}

	var body struct {
		AuthCode     string `json:"auth_code"`
		CodeVerifier string `json:"code_verifier"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error_code": "bad_json", "msg": err.Error()})
		return
	}

	s.mu.Lock()
	g, ok := s.grants[body.AuthCode]
	delete(s.grants, body.AuthCode)
	s.mu.Unlock()

	sum := sha256.Sum256([]byte(body.CodeVerifier))
	if !ok || g.challenge != base64.RawURLEncoding.EncodeToString(sum[:]) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error_code": "flow_state_not_found", "msg": "invalid flow state, no valid flow state found"})
		return
	}

	token := s.SignIn(g.user)
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  token,
		"refresh_token": "refresh-" + randomString(),
		"token_type":    "bearer",
		"expires_in":    3600,
		"user":          g.user,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.user(r); !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "error_code": "bad_jwt", "msg": "invalid JWT"})
		return
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.Expire(token)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	u, ok := s.user(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "error_code": "bad_jwt", "msg": "invalid JWT"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// profileFor enforces that callers only reach their own row.
func (s *Server) profileFor(w http.ResponseWriter, r *http.Request) (string, bool) {
	u, ok := s.user(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": "PGRST301", "message": "JWT expired"})
		return "", false
	}
	id, _ := strings.CutPrefix(r.URL.Query().Get("id"), "eq.")
	if id != u.ID {
		writeJSON(w, http.StatusForbidden, map[string]any{"code": "42501", "message": "permission denied for table profiles"})
		return "", false
	}
	return id, true
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.profileFor(w, r)
	if !ok {
		return
	}

	row := s.Profile(id)
	if row == nil {
		writeJSON(w, http.StatusNotAcceptable, map[string]any{"code": "PGRST116", "message": "JSON object requested, multiple (or no) rows returned"})
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := s.profileFor(w, r)
	if !ok {
		return
	}

	var updates map[string]any
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": "PGRST102", "message": "Empty or invalid json"})
		return
	}
	delete(updates, "id")

	s.mu.Lock()
	row, exists := s.profiles[id]
	if exists {
		maps.Copy(row, updates)
	}
	s.mu.Unlock()

	if !exists {
		writeJSON(w, http.StatusOK, []map[string]any{})
		return
	}
	writeJSON(w, http.StatusOK, []map[string]any{s.Profile(id)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func randomString() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
