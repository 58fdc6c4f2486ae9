package jwks

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeySet(t *testing.T, kids ...string) jwk.Set {
	t.Helper()
	set := jwk.NewSet()
	for _, kid := range kids {
		raw, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		key, err := jwk.FromRaw(raw)
		require.NoError(t, err)
		require.NoError(t, key.Set(jwk.KeyIDKey, kid))
		pub, err := key.PublicKey()
		require.NoError(t, err)
		require.NoError(t, set.AddKey(pub))
	}
	return set
}

// startJWKSServer serves the given key set and counts fetches.
func startJWKSServer(t *testing.T, set jwk.Set) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var fetches atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(set))
	}))
	t.Cleanup(server.Close)
	return server, &fetches
}

func Test_NewCachingProvider_Validation(t *testing.T) {
	_, err := NewCachingProvider("")
	assert.Error(t, err)

	_, err = NewCachingProvider("https://issuer/jwks", WithHTTPClient(nil))
	assert.Error(t, err)
}

func Test_CachingProvider_MemoizesKeys(t *testing.T) {
	server, fetches := startJWKSServer(t, testKeySet(t, "key-1"))

	provider, err := NewCachingProvider(server.URL)
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		set, err := provider.Keys(ctx)
		require.NoError(t, err)
		_, ok := set.LookupKeyID("key-1")
		assert.True(t, ok)
	}

	assert.Equal(t, int32(1), fetches.Load(), "keys are fetched once and memoized")
	assert.False(t, provider.FetchedAt().IsZero())
}

func Test_CachingProvider_RefreshRefetches(t *testing.T) {
	server, fetches := startJWKSServer(t, testKeySet(t, "key-1"))

	provider, err := NewCachingProvider(server.URL)
	require.NoError(t, err)

	ctx := context.Background()
	_, err = provider.Keys(ctx)
	require.NoError(t, err)
	_, err = provider.Refresh(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(2), fetches.Load())
}

func Test_CachingProvider_ConcurrentRefreshCollapses(t *testing.T) {
	var fetches atomic.Int32
	release := make(chan struct{})
	set := testKeySet(t, "key-1")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		<-release
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(server.Close)

	provider, err := NewCachingProvider(server.URL)
	require.NoError(t, err)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	var started sync.WaitGroup
	started.Add(callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			started.Done()
			_, errs[n] = provider.Refresh(context.Background())
		}(i)
	}

	started.Wait()
	close(release)
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, fetches.Load(), int32(2), "racing refreshes share fetches")
}

func Test_CachingProvider_FetchErrorPropagates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	provider, err := NewCachingProvider(server.URL)
	require.NoError(t, err)

	_, err = provider.Keys(context.Background())
	assert.Error(t, err)
}
