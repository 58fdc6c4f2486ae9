// Package claimscache stores assembled claims keyed by a one-way digest of
// the access token. An entry lives at most min(configured max TTL, token
// expiry - now); expired entries behave identically to a miss whether or
// not the sweeper has evicted them yet. The raw token is never stored or
// logged.
package claimscache

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/authward/go-authz-middleware/core"
)

// Label values for the lookup counter.
const (
	metricCacheLookups = "authz_claims_cache_lookups_total"

	resultHit  = "hit"
	resultMiss = "miss"
)

type entry struct {
	payload   []byte
	expiresAt time.Time
}

// Cache is a concurrent-safe, TTL-bounded store of serialized resolved
// claims. It implements core.ClaimsCache.
type Cache struct {
	maxTTL  time.Duration
	codec   core.Codec
	now     func() time.Time
	metrics core.Metrics

	mu      sync.RWMutex
	entries map[core.TokenDigest]entry

	sweepEvery time.Duration
	stopOnce   sync.Once
	stop       chan struct{}
}

// Option configures a Cache.
type Option func(*Cache) error

// WithTimeSource overrides the cache's clock. Useful in tests.
func WithTimeSource(now func() time.Time) Option {
	return func(c *Cache) error {
		if now == nil {
			return errors.New("time source cannot be nil")
		}
		c.now = now
		return nil
	}
}

// WithMetrics sets the sink recording lookup hits and misses.
func WithMetrics(metrics core.Metrics) Option {
	return func(c *Cache) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		c.metrics = metrics
		return nil
	}
}

// WithSweepInterval enables a background sweeper that evicts expired
// entries. Without it expiry is still enforced lazily on access; the
// sweeper only reclaims memory earlier.
func WithSweepInterval(interval time.Duration) Option {
	return func(c *Cache) error {
		if interval <= 0 {
			return errors.New("sweep interval must be positive")
		}
		c.sweepEvery = interval
		return nil
	}
}

// New builds a Cache whose entries never outlive maxTTL. The codec
// serializes claims for storage so the cache stays decoupled from the
// claims shape.
func New(maxTTL time.Duration, codec core.Codec, opts ...Option) (*Cache, error) {
	if maxTTL <= 0 {
		return nil, errors.New("max TTL must be positive")
	}
	if codec == nil {
		return nil, errors.New("codec is required")
	}

	c := &Cache{
		maxTTL:  maxTTL,
		codec:   codec,
		now:     time.Now,
		metrics: core.NopMetrics{},
		entries: make(map[core.TokenDigest]entry),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if c.sweepEvery > 0 {
		go c.sweepLoop()
	}
	return c, nil
}

// Get returns the claims stored under digest, or a miss when the entry is
// absent, expired, or cannot be decoded.
func (c *Cache) Get(digest core.TokenDigest) (*core.ResolvedClaims, bool) {
	c.mu.RLock()
	e, ok := c.entries[digest]
	c.mu.RUnlock()

	if !ok {
		return c.miss()
	}
	if !e.expiresAt.After(c.now()) {
		c.mu.Lock()
		// Re-check under the write lock; a concurrent Put may have
		// replaced the entry with a live one.
		if cur, ok := c.entries[digest]; ok && !cur.expiresAt.After(c.now()) {
			delete(c.entries, digest)
		}
		c.mu.Unlock()
		return c.miss()
	}

	claims, err := c.codec.Unmarshal(e.payload)
	if err != nil {
		return c.miss()
	}

	c.metrics.IncCounter(metricCacheLookups, map[string]string{"result": resultHit})
	return claims, true
}

func (c *Cache) miss() (*core.ResolvedClaims, bool) {
	c.metrics.IncCounter(metricCacheLookups, map[string]string{"result": resultMiss})
	return nil, false
}

// Put stores claims under digest with a lifetime of
// min(maxTTL, tokenExpiry - now). An already-expired token is never
// cached: the put is a no-op. The entry is serialized before the lock is
// taken, so a put is atomic: either the full entry is stored or nothing.
func (c *Cache) Put(digest core.TokenDigest, claims *core.ResolvedClaims, tokenExpiry time.Time) {
	now := c.now()
	ttl := tokenExpiry.Sub(now)
	if ttl <= 0 {
		return
	}
	if ttl > c.maxTTL {
		ttl = c.maxTTL
	}

	payload, err := c.codec.Marshal(claims)
	if err != nil {
		return
	}

	c.mu.Lock()
	c.entries[digest] = entry{payload: payload, expiresAt: now.Add(ttl)}
	c.mu.Unlock()
}

// Len reports the number of physically present entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops all entries.
func (c *Cache) Purge() {
	c.mu.Lock()
	c.entries = make(map[core.TokenDigest]entry)
	c.mu.Unlock()
}

// Stop terminates the background sweeper, if one was started. The cache
// remains usable afterwards.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(c.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	now := c.now()
	c.mu.Lock()
	for digest, e := range c.entries {
		if !e.expiresAt.After(now) {
			delete(c.entries, digest)
		}
	}
	c.mu.Unlock()
}
