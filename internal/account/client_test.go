package account_test

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/tryon/internal/account"
	"github.com/erazemk/tryon/internal/account/accounttest"
	"github.com/erazemk/tryon/internal/model"
)

var alice = model.User{ID: "7d3c1a9e-0000-4000-8000-000000000001", Email: "alice@example.com"}

func newClient(t *testing.T) (*account.Client, *accounttest.Server) {
	t.Helper()
	srv := accounttest.NewServer()
	t.Cleanup(srv.Close)
	return account.NewClient(srv.URL+"/", accounttest.Key), srv
}

func TestSignInWithOAuth(t *testing.T) {
	c, srv := newClient(t)

	start, err := c.SignInWithOAuth("google", account.GoogleOptions("http://localhost:8080/auth/callback"))
	require.NoError(t, err)
	require.NotEmpty(t, start.Verifier)

	u, err := url.Parse(start.URL)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/auth/v1/authorize", u.Scheme+"://"+u.Host+u.Path)

	q := u.Query()
	assert.Equal(t, "google", q.Get("provider"))
	assert.Equal(t, "http://localhost:8080/auth/callback", q.Get("redirect_to"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "s256", q.Get("code_challenge_method"))
	assert.NotEqual(t, start.Verifier, q.Get("code_challenge"))

	again, err := c.SignInWithOAuth("google", account.OAuthOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, start.Verifier, again.Verifier)
}

func TestSignInWithOAuthNoProvider(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.SignInWithOAuth("", account.OAuthOptions{})
	assert.Error(t, err)
}

func TestExchangeCode(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()

	start, err := c.SignInWithOAuth("google", account.GoogleOptions("http://localhost/cb"))
	require.NoError(t, err)
	code, err := srv.Authorize(start.URL, alice)
	require.NoError(t, err)

	t.Run("wrong verifier", func(t *testing.T) {
		other, err := c.SignInWithOAuth("google", account.OAuthOptions{})
		require.NoError(t, err)
		code, err := srv.Authorize(start.URL, alice)
		require.NoError(t, err)

		_, err = c.ExchangeCode(ctx, code, other.Verifier)
		var remote *account.Error
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, http.StatusBadRequest, remote.Status)
		assert.Equal(t, "flow_state_not_found", remote.Code)
	})

	sess, err := c.ExchangeCode(ctx, code, start.Verifier)
	require.NoError(t, err)
	assert.Equal(t, alice, sess.User)
	assert.NotEmpty(t, sess.AccessToken)
	assert.Equal(t, "bearer", sess.TokenType)
	assert.Equal(t, 3600, sess.ExpiresIn)
	assert.True(t, srv.SignedIn(sess.AccessToken))

	_, err = c.ExchangeCode(ctx, code, start.Verifier)
	assert.Error(t, err, "codes are single use")
}

func TestGetSession(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()
	token := srv.SignIn(alice)

	u, err := c.GetSession(ctx, token)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, alice, *u)

	u, err = c.GetSession(ctx, "")
	assert.NoError(t, err)
	assert.Nil(t, u)

	srv.Expire(token)
	u, err = c.GetSession(ctx, token)
	assert.NoError(t, err)
	assert.Nil(t, u)

	srv.FailNext("/auth/v1/user", http.StatusInternalServerError)
	_, err = c.GetSession(ctx, srv.SignIn(alice))
	var remote *account.Error
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusInternalServerError, remote.Status)
	assert.Equal(t, "injected failure", remote.Message)
}

func TestSignOut(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()
	token := srv.SignIn(alice)

	srv.FailNext("/auth/v1/logout", http.StatusBadGateway)
	require.Error(t, c.SignOut(ctx, token))
	assert.True(t, srv.SignedIn(token), "failed sign-out keeps the session")

	require.NoError(t, c.SignOut(ctx, token))
	assert.False(t, srv.SignedIn(token))
}

func TestProfile(t *testing.T) {
	c, srv := newClient(t)
	ctx := context.Background()
	token := srv.SignIn(alice)

	_, err := c.GetProfile(ctx, token, alice.ID)
	assert.True(t, account.IsNotFound(err), "got %v", err)

	srv.SetProfile(alice.ID, map[string]any{"full_name": "Alice", "style": "minimal"})

	p, err := c.GetProfile(ctx, token, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", p["full_name"])
	assert.Equal(t, alice.ID, p["id"])

	rows, err := c.UpdateProfile(ctx, token, alice.ID, account.Profile{"full_name": "Alice Smith"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alice Smith", rows[0]["full_name"])
	assert.Equal(t, "minimal", rows[0]["style"], "update is partial")

	_, err = c.UpdateProfile(ctx, token, alice.ID, nil)
	assert.Error(t, err)

	_, err = c.GetProfile(ctx, token, "someone-else")
	var remote *account.Error
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, http.StatusForbidden, remote.Status)
}

func TestMissingAPIKey(t *testing.T) {
	srv := accounttest.NewServer()
	t.Cleanup(srv.Close)
	c := account.NewClient(srv.URL, "wrong")

	_, err := c.GetSession(context.Background(), srv.SignIn(alice))
	assert.NoError(t, err, "a rejected key reads as no session")

	err = c.SignOut(context.Background(), "x")
	assert.True(t, account.IsUnauthorized(err))
	assert.False(t, account.IsUnauthorized(errors.New("plain")))
}

func TestUserFromAccessToken(t *testing.T) {
	claims := jwt.MapClaims{"sub": alice.ID, "email": alice.Email, "role": "authenticated"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("remote-secret"))
	require.NoError(t, err)

	u, err := account.UserFromAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, alice, u)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = account.UserFromAccessToken(noSub)
	assert.Error(t, err)

	_, err = account.UserFromAccessToken(base64.RawURLEncoding.EncodeToString([]byte("garbage")))
	assert.Error(t, err)
}
