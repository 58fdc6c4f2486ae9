package validator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authward/go-authz-middleware/core"
)

func startIntrospectionServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func Test_NewIntrospection_Validation(t *testing.T) {
	_, err := NewIntrospection("", "client", "secret")
	assert.Error(t, err)
	_, err = NewIntrospection("https://issuer/introspect", "", "secret")
	assert.Error(t, err)
	_, err = NewIntrospection("https://issuer/introspect", "client", "")
	assert.Error(t, err)
	_, err = NewIntrospection("https://issuer/introspect", "client", "secret", WithIntrospectionHTTPClient(nil))
	assert.Error(t, err)
}

func Test_IntrospectionValidator_ActiveToken(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	server := startIntrospectionServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-token", r.PostForm.Get("token"))

		_ = json.NewEncoder(w).Encode(map[string]any{
			"active":    true,
			"sub":       "user-1",
			"client_id": "client-1",
			"scope":     "openid profile",
			"exp":       expiry.Unix(),
		})
	})

	v, err := NewIntrospection(server.URL, "client", "secret")
	require.NoError(t, err)

	base, err := v.Validate(context.Background(), "the-token")
	require.NoError(t, err)
	assert.Equal(t, "user-1", base.Subject)
	assert.Equal(t, "client-1", base.ClientID)
	assert.Equal(t, []string{"openid", "profile"}, base.Scope)
	assert.Equal(t, expiry.Unix(), base.ExpiresAt.Unix())
}

func Test_IntrospectionValidator_InactiveToken(t *testing.T) {
	server := startIntrospectionServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"active": false})
	})

	v, err := NewIntrospection(server.URL, "client", "secret")
	require.NoError(t, err)

	// The server answered: a revoked or expired token is an authentication
	// failure, never an outage.
	_, err = v.Validate(context.Background(), "revoked-token")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
	assert.NotErrorIs(t, err, core.ErrUpstreamUnavailable)
}

func Test_IntrospectionValidator_ExpiredByExpClaim(t *testing.T) {
	server := startIntrospectionServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"active": true,
			"sub":    "user-1",
			"exp":    time.Now().Add(-time.Minute).Unix(),
		})
	})

	v, err := NewIntrospection(server.URL, "client", "secret")
	require.NoError(t, err)

	_, err = v.Validate(context.Background(), "stale-token")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func Test_IntrospectionValidator_UpstreamFailures(t *testing.T) {
	t.Run("non-200 response", func(t *testing.T) {
		server := startIntrospectionServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		v, err := NewIntrospection(server.URL, "client", "secret")
		require.NoError(t, err)

		_, err = v.Validate(context.Background(), "any-token")
		assert.ErrorIs(t, err, core.ErrUpstreamUnavailable)
	})

	t.Run("malformed response body", func(t *testing.T) {
		server := startIntrospectionServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		})
		v, err := NewIntrospection(server.URL, "client", "secret")
		require.NoError(t, err)

		_, err = v.Validate(context.Background(), "any-token")
		assert.ErrorIs(t, err, core.ErrUpstreamUnavailable)
	})

	t.Run("server unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		server.Close()

		v, err := NewIntrospection(server.URL, "client", "secret")
		require.NoError(t, err)

		_, err = v.Validate(context.Background(), "any-token")
		assert.ErrorIs(t, err, core.ErrUpstreamUnavailable)
	})

	t.Run("slow server times out", func(t *testing.T) {
		release := make(chan struct{})
		server := startIntrospectionServer(t, func(w http.ResponseWriter, r *http.Request) {
			<-release
		})
		t.Cleanup(func() { close(release) })

		v, err := NewIntrospection(server.URL, "client", "secret",
			WithIntrospectionHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}))
		require.NoError(t, err)

		_, err = v.Validate(context.Background(), "any-token")
		assert.ErrorIs(t, err, core.ErrUpstreamUnavailable)
	})
}
