package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/tryon/internal/account"
	"github.com/erazemk/tryon/internal/account/accounttest"
	"github.com/erazemk/tryon/internal/auth"
	"github.com/erazemk/tryon/internal/closet"
	"github.com/erazemk/tryon/internal/db"
	"github.com/erazemk/tryon/internal/model"
	"github.com/erazemk/tryon/internal/session"
)

const testSealKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

var alice = model.User{ID: "user-alice", Email: "alice@example.com"}

type testEnv struct {
	server   *httptest.Server
	remote   *accounttest.Server
	sessions *session.Manager
	token    string
	session  *model.Session
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	remote := accounttest.NewServer()
	t.Cleanup(remote.Close)

	sealer, err := auth.NewSealer(testSealKey)
	require.NoError(t, err)

	sessions := &session.Manager{
		DB:      db.NewTestDB(t),
		Secret:  "test-secret",
		Sealer:  sealer,
		Account: account.NewClient(remote.URL, accounttest.Key),
		Closets: closet.NewRegistry(),
	}
	server := httptest.NewServer(NewRouter(sessions))
	t.Cleanup(server.Close)

	token, s, err := sessions.Start(context.Background(), &account.Session{
		AccessToken: remote.SignIn(alice),
		ExpiresIn:   3600,
		User:        alice,
	})
	require.NoError(t, err)

	return &testEnv{server: server, remote: remote, sessions: sessions, token: token, session: s}
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (e *testEnv) do(t *testing.T, method, path string, body, out any) int {
	t.Helper()
	req, err := authRequest(method, e.server.URL+path, e.token, body)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func itemNames(items []model.ClothingItem) []string {
	names := make([]string, len(items))
	for i, item := range items {
		names[i] = item.Name
	}
	return names
}

func TestListItems(t *testing.T) {
	env := setupTestServer(t)

	var items []model.ClothingItem
	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/items", nil, &items))
	assert.Len(t, items, 5)

	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/items?category=Shoes", nil, &items))
	assert.Equal(t, []string{"Running Shoes"}, itemNames(items))

	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/items?q=JACKET&category=All", nil, &items))
	assert.Equal(t, []string{"Winter Jacket"}, itemNames(items))

	assert.Equal(t, http.StatusBadRequest, env.do(t, "GET", "/api/items?category=Hats", nil, nil))
}

func TestCreateItem(t *testing.T) {
	env := setupTestServer(t)

	var item model.ClothingItem
	status := env.do(t, "POST", "/api/items", map[string]any{
		"name":     "  Red Cap ",
		"category": "accessories",
		"tags":     []string{"Casual", "Summer", "Casual"},
	}, &item)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Red Cap", item.Name)
	assert.Equal(t, model.CategoryAccessories, item.Category)
	assert.Equal(t, model.NewTagSet(model.TagCasual, model.TagSummer), item.Tags)
	assert.Equal(t, model.PlaceholderImage, item.ImageURL)
	assert.NotEmpty(t, item.ID)

	var items []model.ClothingItem
	env.do(t, "GET", "/api/items", nil, &items)
	assert.Len(t, items, 6)
}

func TestCreateItemValidation(t *testing.T) {
	env := setupTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"empty name", map[string]any{"name": "   "}},
		{"all category", map[string]any{"name": "Cap", "category": "All"}},
		{"unknown category", map[string]any{"name": "Cap", "category": "Hats"}},
		{"unknown tag", map[string]any{"name": "Cap", "tags": []string{"Sporty"}}},
		{"remote image", map[string]any{"name": "Cap", "image": "https://example.com/cap.png"}},
		{"bad base64", map[string]any{"name": "Cap", "image": "data:image/png;base64,not-an-image"}},
		{"not base64", map[string]any{"name": "Cap", "image": "data:image/png,raw"}},
		{"not an image", map[string]any{"name": "Cap", "image": "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("hello"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp map[string]string
			assert.Equal(t, http.StatusBadRequest, env.do(t, "POST", "/api/items", tt.body, &resp))
			assert.NotEmpty(t, resp["error"])
		})
	}

	var items []model.ClothingItem
	env.do(t, "GET", "/api/items", nil, &items)
	assert.Len(t, items, 5, "rejected items are not added")
}

func pngDataURL(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestCreateItemWithImage(t *testing.T) {
	env := setupTestServer(t)

	var item model.ClothingItem
	status := env.do(t, "POST", "/api/items", map[string]any{
		"name":     "Denim Jacket",
		"category": "Outerwear",
		"image":    pngDataURL(t, 1200, 300),
		"favorite": true,
	}, &item)
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, strings.HasPrefix(item.ImageURL, "data:image/jpeg;base64,"), "stored image is re-encoded")
	assert.True(t, item.Favorite)
}

func TestCreateItemBodyTooLarge(t *testing.T) {
	env := setupTestServer(t)

	body, err := json.Marshal(map[string]any{
		"name":  "Cap",
		"image": "data:image/png;base64," + strings.Repeat("A", 20<<20),
	})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/items", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+env.token)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.server.Config.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, 5, env.sessions.Closet(env.session).Catalog.Len())
}

func TestCreateItemConcurrent(t *testing.T) {
	env := setupTestServer(t)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, _ := authRequest("POST", env.server.URL+"/api/items", env.token, map[string]any{"name": "Sock"})
			resp, err := http.DefaultClient.Do(req)
			if assert.NoError(t, err) {
				resp.Body.Close()
				assert.Equal(t, http.StatusCreated, resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	var items []model.ClothingItem
	env.do(t, "GET", "/api/items", nil, &items)
	require.Len(t, items, 25)

	seen := make(map[string]bool)
	for _, item := range items {
		assert.False(t, seen[item.ID], "duplicate id %s", item.ID)
		seen[item.ID] = true
	}
}

func TestCategories(t *testing.T) {
	env := setupTestServer(t)

	resp, err := http.Get(env.server.URL + "/api/categories")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Categories []string `json:"categories"`
		Tags       []string `json:"tags"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, []string{"Tops", "Bottoms", "Shoes", "Accessories", "Outerwear"}, body.Categories)
	assert.Equal(t, []string{"Casual", "Formal", "Party", "Office", "Summer", "Winter"}, body.Tags)
}

func TestSessionEndpoint(t *testing.T) {
	env := setupTestServer(t)

	var body struct {
		User *model.User `json:"user"`
	}
	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/session", nil, &body))
	require.NotNil(t, body.User)
	assert.Equal(t, alice, *body.User)

	env.remote.Expire(env.session.AccessToken)
	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/session", nil, &body))
	assert.Nil(t, body.User)

	env.remote.FailNext("/auth/v1/user", http.StatusInternalServerError)
	assert.Equal(t, http.StatusBadGateway, env.do(t, "GET", "/api/session", nil, nil))
}

func TestProfileEndpoints(t *testing.T) {
	env := setupTestServer(t)

	assert.Equal(t, http.StatusNotFound, env.do(t, "GET", "/api/profile", nil, nil))
	assert.Equal(t, http.StatusNotFound, env.do(t, "PUT", "/api/profile", map[string]any{"full_name": "A"}, nil))

	env.remote.SetProfile(alice.ID, map[string]any{"full_name": "Alice"})

	var profile map[string]any
	require.Equal(t, http.StatusOK, env.do(t, "GET", "/api/profile", nil, &profile))
	assert.Equal(t, "Alice", profile["full_name"])

	require.Equal(t, http.StatusOK, env.do(t, "PUT", "/api/profile", map[string]any{"favorite_color": "green"}, &profile))
	assert.Equal(t, "green", profile["favorite_color"])
	assert.Equal(t, "Alice", profile["full_name"])

	assert.Equal(t, http.StatusBadRequest, env.do(t, "PUT", "/api/profile", map[string]any{}, nil))

	env.remote.FailNext("/rest/v1/profiles", http.StatusServiceUnavailable)
	assert.Equal(t, http.StatusBadGateway, env.do(t, "GET", "/api/profile", nil, nil))
}

func TestLogout(t *testing.T) {
	env := setupTestServer(t)

	env.remote.FailNext("/auth/v1/logout", http.StatusInternalServerError)
	assert.Equal(t, http.StatusBadGateway, env.do(t, "POST", "/api/auth/logout", nil, nil))
	assert.Equal(t, http.StatusOK, env.do(t, "GET", "/api/items", nil, nil), "failed sign-out keeps the session")

	assert.Equal(t, http.StatusOK, env.do(t, "POST", "/api/auth/logout", nil, nil))
	assert.False(t, env.remote.SignedIn(env.session.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, env.do(t, "GET", "/api/items", nil, nil))
}

func TestUnauthenticatedAccess(t *testing.T) {
	env := setupTestServer(t)

	endpoints := []struct {
		method, path string
	}{
		{"GET", "/api/items"},
		{"POST", "/api/items"},
		{"GET", "/api/session"},
		{"GET", "/api/profile"},
		{"PUT", "/api/profile"},
		{"POST", "/api/auth/logout"},
	}

	for _, ep := range endpoints {
		req, _ := http.NewRequest(ep.method, env.server.URL+ep.path, nil)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s", ep.method, ep.path)

		req, _ = authRequest(ep.method, env.server.URL+ep.path, "garbage", nil)
		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "%s %s with bad token", ep.method, ep.path)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 3)
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	statuses := make([]int, 0, 5)
	for range 5 {
		req := httptest.NewRequest("GET", "/api/items", nil)
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		statuses = append(statuses, rec.Code)
	}
	assert.Equal(t, []int{204, 204, 204, 429, 429}, statuses)

	req := httptest.NewRequest("GET", "/api/items", nil)
	req.RemoteAddr = "192.0.2.2:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code, "clients are limited independently")
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", clientIP(req))
}

func TestRecover(t *testing.T) {
	h := Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
