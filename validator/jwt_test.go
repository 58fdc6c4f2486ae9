package validator

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authward/go-authz-middleware/core"
	"github.com/authward/go-authz-middleware/jwks"
)

const (
	testIssuer   = "https://issuer.example.com"
	testAudience = "https://api.example.com"
)

func newSigningKey(t *testing.T, kid string) jwk.Key {
	t.Helper()
	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	key, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	require.NoError(t, key.Set(jwk.AlgorithmKey, jwa.RS256))
	return key
}

func publicSetOf(t *testing.T, keys ...jwk.Key) jwk.Set {
	t.Helper()
	set := jwk.NewSet()
	for _, key := range keys {
		pub, err := key.PublicKey()
		require.NoError(t, err)
		require.NoError(t, set.AddKey(pub))
	}
	return set
}

// jwksServer serves a swappable key set and counts fetches.
type jwksServer struct {
	*httptest.Server
	set     atomic.Value // jwk.Set
	fetches atomic.Int32
}

func startJWKSServer(t *testing.T, set jwk.Set) *jwksServer {
	t.Helper()
	s := &jwksServer{}
	s.set.Store(set)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.set.Load().(jwk.Set))
	}))
	t.Cleanup(s.Close)
	return s
}

type tokenOpts struct {
	issuer   string
	audience string
	subject  string
	expiry   time.Time
	claims   map[string]any
}

func signToken(t *testing.T, key jwk.Key, opts tokenOpts) string {
	t.Helper()
	if opts.issuer == "" {
		opts.issuer = testIssuer
	}
	if opts.audience == "" {
		opts.audience = testAudience
	}
	if opts.subject == "" {
		opts.subject = "user-1"
	}
	if opts.expiry.IsZero() {
		opts.expiry = time.Now().Add(time.Hour)
	}

	builder := jwt.NewBuilder().
		Issuer(opts.issuer).
		Audience([]string{opts.audience}).
		Subject(opts.subject).
		IssuedAt(time.Now()).
		Expiration(opts.expiry)
	for name, value := range opts.claims {
		builder = builder.Claim(name, value)
	}
	tok, err := builder.Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256, key))
	require.NoError(t, err)
	return string(signed)
}

func newTestValidator(t *testing.T, server *jwksServer, opts ...JWTOption) *JWTValidator {
	t.Helper()
	provider, err := jwks.NewCachingProvider(server.URL)
	require.NoError(t, err)
	v, err := NewJWT(provider, testIssuer, testAudience, opts...)
	require.NoError(t, err)
	return v
}

func Test_NewJWT_Validation(t *testing.T) {
	server := startJWKSServer(t, jwk.NewSet())
	provider, err := jwks.NewCachingProvider(server.URL)
	require.NoError(t, err)

	_, err = NewJWT(nil, testIssuer, testAudience)
	assert.Error(t, err)
	_, err = NewJWT(provider, "", testAudience)
	assert.Error(t, err)
	_, err = NewJWT(provider, testIssuer, "")
	assert.Error(t, err)
	_, err = NewJWT(provider, testIssuer, testAudience, WithClockSkew(-time.Second))
	assert.Error(t, err)
	_, err = NewJWT(provider, testIssuer, testAudience, WithClock(nil))
	assert.Error(t, err)
}

func Test_JWTValidator_ValidToken(t *testing.T) {
	key := newSigningKey(t, "key-1")
	server := startJWKSServer(t, publicSetOf(t, key))
	v := newTestValidator(t, server)

	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signToken(t, key, tokenOpts{
		expiry: expiry,
		claims: map[string]any{
			"scope":     "openid profile email",
			"client_id": "client-1",
		},
	})

	base, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", base.Subject)
	assert.Equal(t, "client-1", base.ClientID)
	assert.Equal(t, []string{"openid", "profile", "email"}, base.Scope)
	assert.True(t, base.ExpiresAt.Equal(expiry))
}

func Test_JWTValidator_ScopeListAndAzp(t *testing.T) {
	key := newSigningKey(t, "key-1")
	server := startJWKSServer(t, publicSetOf(t, key))
	v := newTestValidator(t, server)

	token := signToken(t, key, tokenOpts{
		claims: map[string]any{
			"scp": []string{"read", "write"},
			"azp": "client-2",
		},
	})

	base, err := v.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, []string{"read", "write"}, base.Scope)
	assert.Equal(t, "client-2", base.ClientID)
}

func Test_JWTValidator_RejectsBadTokens(t *testing.T) {
	key := newSigningKey(t, "key-1")
	otherKey := newSigningKey(t, "key-1") // same kid, different key material
	server := startJWKSServer(t, publicSetOf(t, key))
	v := newTestValidator(t, server)

	testCases := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"empty segments", ".."},
		{"wrong issuer", signToken(t, key, tokenOpts{issuer: "https://evil.example.com"})},
		{"wrong audience", signToken(t, key, tokenOpts{audience: "https://other-api.example.com"})},
		{"wrong signing key", signToken(t, otherKey, tokenOpts{})},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := v.Validate(context.Background(), testCase.token)
			assert.ErrorIs(t, err, core.ErrTokenInvalid)
		})
	}
}

func Test_JWTValidator_ExpiredToken(t *testing.T) {
	key := newSigningKey(t, "key-1")
	server := startJWKSServer(t, publicSetOf(t, key))

	expiry := time.Now().Add(time.Minute)
	token := signToken(t, key, tokenOpts{expiry: expiry})

	t.Run("rejected after expiry", func(t *testing.T) {
		later := jwt.ClockFunc(func() time.Time { return expiry.Add(time.Minute) })
		v := newTestValidator(t, server, WithClock(later))
		_, err := v.Validate(context.Background(), token)
		assert.ErrorIs(t, err, core.ErrTokenInvalid)
	})

	t.Run("skew tolerates recent expiry", func(t *testing.T) {
		justAfter := jwt.ClockFunc(func() time.Time { return expiry.Add(10 * time.Second) })
		v := newTestValidator(t, server, WithClock(justAfter), WithClockSkew(30*time.Second))
		_, err := v.Validate(context.Background(), token)
		assert.NoError(t, err)
	})
}

func Test_JWTValidator_UnknownKidRefetchesOnce(t *testing.T) {
	key1 := newSigningKey(t, "key-1")
	key2 := newSigningKey(t, "key-2")
	server := startJWKSServer(t, publicSetOf(t, key1))
	v := newTestValidator(t, server)

	// Warm the key cache.
	_, err := v.Validate(context.Background(), signToken(t, key1, tokenOpts{}))
	require.NoError(t, err)
	require.Equal(t, int32(1), server.fetches.Load())

	// key-2 is not published: exactly one refetch, then failure.
	_, err = v.Validate(context.Background(), signToken(t, key2, tokenOpts{}))
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
	assert.Equal(t, int32(2), server.fetches.Load(), "unknown kid triggers exactly one refetch")

	// Authority rotates to key-2: the refetch picks it up.
	server.set.Store(publicSetOf(t, key1, key2))
	base, err := v.Validate(context.Background(), signToken(t, key2, tokenOpts{}))
	require.NoError(t, err)
	assert.Equal(t, "user-1", base.Subject)
	assert.Equal(t, int32(3), server.fetches.Load())
}

func Test_JWTValidator_KeySourceDownIsUpstream(t *testing.T) {
	key := newSigningKey(t, "key-1")
	server := startJWKSServer(t, publicSetOf(t, key))
	v := newTestValidator(t, server)
	server.Close()

	_, err := v.Validate(context.Background(), signToken(t, key, tokenOpts{}))
	assert.ErrorIs(t, err, core.ErrUpstreamUnavailable)
}

func Test_SplitScope(t *testing.T) {
	assert.Nil(t, splitScope(""))
	assert.Equal(t, []string{"a"}, splitScope("a"))
	assert.Equal(t, []string{"a", "b"}, splitScope("a  b"))
}
