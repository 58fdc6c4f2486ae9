// Package jwks fetches and caches the authorization server's signing keys.
// The CachingProvider memoizes the key set for the process lifetime and
// refetches only when a validator reports an unknown key id, so the JWT
// validation hot path makes no network calls once keys are cached.
package jwks

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"golang.org/x/sync/singleflight"
)

// KeySource supplies the signing-key set used for local JWT verification.
type KeySource interface {
	// Keys returns the cached key set, fetching it on first use.
	Keys(ctx context.Context) (jwk.Set, error)

	// Refresh refetches the key set from the JWKS endpoint and returns the
	// fresh set. Concurrent callers are collapsed into a single fetch.
	Refresh(ctx context.Context) (jwk.Set, error)
}

// CachingProvider fetches a JWKS document once and serves it from memory.
// Refresh is guarded by a single-flight group: concurrent unknown-key-id
// misses trigger at most one refetch.
type CachingProvider struct {
	jwksURI string
	client  *http.Client

	mu        sync.RWMutex
	set       jwk.Set
	fetchedAt time.Time

	sf singleflight.Group
}

// Option configures a CachingProvider.
type Option func(*CachingProvider) error

// WithHTTPClient sets the HTTP client used for JWKS fetches. If not
// specified, a default client with a 30s timeout is used.
func WithHTTPClient(c *http.Client) Option {
	return func(p *CachingProvider) error {
		if c == nil {
			return fmt.Errorf("HTTP client cannot be nil")
		}
		p.client = c
		return nil
	}
}

// NewCachingProvider builds a CachingProvider for the given JWKS URI.
func NewCachingProvider(jwksURI string, opts ...Option) (*CachingProvider, error) {
	if jwksURI == "" {
		return nil, fmt.Errorf("jwks URI is required")
	}

	p := &CachingProvider{
		jwksURI: jwksURI,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return p, nil
}

// Keys returns the cached key set, performing the initial fetch lazily.
func (p *CachingProvider) Keys(ctx context.Context) (jwk.Set, error) {
	p.mu.RLock()
	set := p.set
	p.mu.RUnlock()

	if set != nil {
		return set, nil
	}
	return p.Refresh(ctx)
}

// Refresh refetches the JWKS document. Callers that race on the same
// refresh share one network call and one result.
func (p *CachingProvider) Refresh(ctx context.Context) (jwk.Set, error) {
	v, err, _ := p.sf.Do("refresh", func() (interface{}, error) {
		set, err := jwk.Fetch(ctx, p.jwksURI, jwk.WithHTTPClient(p.client))
		if err != nil {
			return nil, fmt.Errorf("could not fetch JWKS from %s: %w", p.jwksURI, err)
		}

		p.mu.Lock()
		p.set = set
		p.fetchedAt = time.Now()
		p.mu.Unlock()

		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(jwk.Set), nil
}

// FetchedAt reports when the current key set was fetched, or the zero time
// if no fetch has happened yet.
func (p *CachingProvider) FetchedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fetchedAt
}
