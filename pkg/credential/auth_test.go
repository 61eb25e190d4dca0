package credential

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtgo "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"skemino-client/internal/jwt"
)

var cbg = context.Background()

type fakeGuest struct {
	token string
	err   error
	calls int
}

func (f *fakeGuest) GuestToken(context.Context) (string, error) {
	f.calls++
	return f.token, f.err
}

func authServer(t *testing.T, status int, body interface{}) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&payload)
		if r.URL.Path == "/auth/login" {
			assert.Equal(t, "player@skemino.example", payload["email"])
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestAuthClient_GuestToken(t *testing.T) {
	ts := authServer(t, http.StatusOK, TokenResponse{Token: "abc"})
	c := NewAuthClient(ts.URL+"/", "/auth/guest", "/auth/login")

	tok, err := c.GuestToken(cbg)
	assert.NoError(t, err)
	assert.Equal(t, "abc", tok)
}

func TestAuthClient_Login(t *testing.T) {
	ts := authServer(t, http.StatusOK, TokenResponse{Token: "registered"})
	c := NewAuthClient(ts.URL, "/auth/guest", "/auth/login")

	tok, err := c.Login(cbg, "player@skemino.example", "secret")
	assert.NoError(t, err)
	assert.Equal(t, "registered", tok)
}

func TestAuthClient_errors(t *testing.T) {
	ts := authServer(t, http.StatusBadRequest, errorResponse{Message: "invalid recaptcha", StatusCode: 400})
	_, err := NewAuthClient(ts.URL, "/auth/guest", "/auth/login").GuestToken(cbg)

	var serverErr ServerError
	if assert.True(t, errors.As(err, &serverErr)) {
		assert.Equal(t, 400, serverErr.StatusCode)
		assert.Equal(t, "invalid recaptcha", serverErr.Message)
	}

	ts = authServer(t, http.StatusOK, TokenResponse{})
	_, err = NewAuthClient(ts.URL, "/auth/guest", "/auth/login").GuestToken(cbg)
	assert.EqualError(t, err, "server returned an empty token")
}

func TestResolve_storedToken(t *testing.T) {
	signed, err := jwt.NewSigner("secret").Sign("player-1", "Flint", false)
	assert.NoError(t, err)

	store := &MemoryStore{}
	_ = store.Save(signed, true)
	guest := &fakeGuest{token: "guest"}

	tok, err := Resolve(cbg, store, guest)
	assert.NoError(t, err)
	assert.Equal(t, signed, tok)
	assert.Equal(t, 0, guest.calls)
}

func TestResolve_guest(t *testing.T) {
	store := &MemoryStore{}
	guest := &fakeGuest{token: "guest-token"}

	tok, err := Resolve(cbg, store, guest)
	assert.NoError(t, err)
	assert.Equal(t, "guest-token", tok)

	stored, _ := store.Token()
	assert.Equal(t, "guest-token", stored)
	assert.Equal(t, "", store.remembered, "guest tokens live in the session scope")
}

func TestResolve_unusableStoredToken(t *testing.T) {
	store := &MemoryStore{}
	_ = store.Save("garbage", true)
	guest := &fakeGuest{token: "guest-token"}

	tok, err := Resolve(cbg, store, guest)
	assert.NoError(t, err)
	assert.Equal(t, "guest-token", tok)
	assert.Equal(t, 1, guest.calls)
}

func expiredToken(t *testing.T) string {
	t.Helper()

	expired := time.Now().Add(-time.Hour)
	signed, err := jwtgo.NewWithClaims(jwtgo.SigningMethodHS256, &jwt.Claims{
		Username: "Flint",
		RegisteredClaims: jwtgo.RegisteredClaims{
			Audience:  jwtgo.ClaimStrings{jwt.Audience},
			Issuer:    jwt.Issuer,
			Subject:   "player-1",
			ExpiresAt: jwtgo.NewNumericDate(expired),
		},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	return signed
}

func TestResolve_expiredRememberedFallsBackToSession(t *testing.T) {
	session, err := jwt.NewSigner("secret").Sign("guest-1", "Pebble", true)
	require.NoError(t, err)

	store := &MemoryStore{}
	_ = store.Save(expiredToken(t), true)
	_ = store.Save(session, false)
	guest := &fakeGuest{token: "guest-token"}

	tok, err := Resolve(cbg, store, guest)
	assert.NoError(t, err)
	assert.Equal(t, session, tok)
	assert.Equal(t, 0, guest.calls)

	_, ok := store.Scoped(true)
	assert.False(t, ok, "the expired token is forgotten")
	stored, ok := store.Scoped(false)
	assert.True(t, ok)
	assert.Equal(t, session, stored)
}

func TestResolve_expiredSession(t *testing.T) {
	store := &MemoryStore{}
	_ = store.Save(expiredToken(t), false)
	guest := &fakeGuest{token: "guest-token"}

	tok, err := Resolve(cbg, store, guest)
	assert.NoError(t, err)
	assert.Equal(t, "guest-token", tok)
	assert.Equal(t, 1, guest.calls)
}

func TestResolve_noCredential(t *testing.T) {
	_, err := Resolve(cbg, &MemoryStore{}, &fakeGuest{err: errors.New("server down")})
	assert.ErrorIs(t, err, ErrNoCredential)
	assert.Contains(t, err.Error(), "server down")

	_, err = Resolve(cbg, &MemoryStore{}, nil)
	assert.ErrorIs(t, err, ErrNoCredential)

	ctx, cancel := context.WithTimeout(cbg, time.Millisecond)
	defer cancel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer ts.Close()
	_, err = Resolve(ctx, &MemoryStore{}, NewAuthClient(ts.URL, "/auth/guest", "/auth/login"))
	assert.ErrorIs(t, err, ErrNoCredential)
}
