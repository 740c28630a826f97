package authtoken

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func protectedEcho(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs, ok := ClaimsFrom(r.Context())
		require.True(t, ok)
		w.Header().Set("X-User-Id", cs.UserID.String())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth_OK(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	iss, ver, _ := testPair(t, key)

	in := testClaims()
	pair, err := iss.Issue(context.Background(), in)
	require.NoError(t, err)

	h := RequireAuth(ver)(protectedEcho(t))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, in.UserID.String(), rec.Header().Get("X-User-Id"))
}

func TestRequireAuth_MissingOrBadHeader(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	_, ver, _ := testPair(t, key)
	h := RequireAuth(ver)(protectedEcho(t))

	for _, header := range []string{"", "Basic abc", "Bearer ", "token xyz"} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, "header=%q", header)
	}
}

func TestRequireAuth_ExpiredToken(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	opts := testOpts()
	opts.Leeway = 0
	iss := NewIssuer(staticKeySource{key: key}, -time.Minute, -time.Minute, opts)
	ver := NewVerifier(&key.PublicKey, &fakeRegistry{revoked: map[string]bool{}}, opts)

	pair, err := iss.Issue(context.Background(), testClaims())
	require.NoError(t, err)

	h := RequireAuth(ver)(protectedEcho(t))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_RegistryDown_Is500(t *testing.T) {
	t.Parallel()

	key := testKey(t)
	iss := NewIssuer(staticKeySource{key: key}, time.Minute, time.Hour, testOpts())
	ver := NewVerifier(&key.PublicKey, &fakeRegistry{err: errors.New("registry down")}, testOpts())

	pair, err := iss.Issue(context.Background(), testClaims())
	require.NoError(t, err)

	h := RequireAuth(ver)(protectedEcho(t))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()

	// Инфраструктурный отказ не выдаётся за невалидный credential.
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
