// Package core provides the transport-agnostic authorization engine: the
// error taxonomy, the claims model, and the Authorizer state machine that
// ties a token validator, a claims cache, and a claims assembler together
// per request. Transport adapters (net/http, echo, gin, gRPC) wrap this
// package rather than reimplementing the flow.
package core

import (
	"context"
	"time"
)

// TokenValidator proves that a token is structurally valid, unexpired, and
// issued by the trusted authority, and extracts the baseline claims.
// Implementations fail with ErrTokenInvalid for bad tokens and
// ErrUpstreamUnavailable when a required remote call cannot complete.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (BaselineClaims, error)
}

// ClaimsCache stores assembled claims keyed by a token digest. An expired
// entry behaves identically to a miss; Put is a no-op for tokens whose
// expiry has already passed.
type ClaimsCache interface {
	Get(digest TokenDigest) (*ResolvedClaims, bool)
	Put(digest TokenDigest, claims *ResolvedClaims, tokenExpiry time.Time)
}

// Logger is the logging interface used across the module. It is satisfied
// by the adapters in the root package (logrus, zap, zerolog).
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// NopLogger discards all log output. It is the default when no logger is
// configured.
type NopLogger struct{}

func (NopLogger) Debugf(format string, args ...interface{}) {}
func (NopLogger) Infof(format string, args ...interface{})  {}
func (NopLogger) Warnf(format string, args ...interface{})  {}
func (NopLogger) Errorf(format string, args ...interface{}) {}

// Metrics is the metrics interface used across the module. The root
// package provides a Prometheus implementation.
type Metrics interface {
	IncCounter(name string, tags map[string]string)
	ObserveHistogram(name string, value float64, tags map[string]string)
}

// NopMetrics discards all measurements. It is the default when no metrics
// sink is configured.
type NopMetrics struct{}

func (NopMetrics) IncCounter(name string, tags map[string]string)                      {}
func (NopMetrics) ObserveHistogram(name string, value float64, tags map[string]string) {}

// Authorizer produces a pass/fail decision plus resolved claims for a raw
// bearer token. The two implementations, StandardAuthorizer and
// ClaimsCachingAuthorizer, are a closed set selected once at startup from
// configuration.
type Authorizer interface {
	Authorize(ctx context.Context, token string) (*ResolvedClaims, error)
}

// StandardAuthorizer treats the baseline claims extracted from the token
// as the final claims. It is the right choice when the authorization
// server embeds everything the service needs in the token itself: no
// caching, no assembly, no extra round trips.
type StandardAuthorizer struct {
	validator TokenValidator
	logger    Logger
}

// NewStandardAuthorizer builds an Authorizer that resolves claims from the
// token alone.
func NewStandardAuthorizer(validator TokenValidator, logger Logger) *StandardAuthorizer {
	if logger == nil {
		logger = NopLogger{}
	}
	return &StandardAuthorizer{validator: validator, logger: logger}
}

// Authorize validates the token and returns its baseline claims as the
// resolved claims.
func (a *StandardAuthorizer) Authorize(ctx context.Context, token string) (*ResolvedClaims, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}

	base, err := a.validator.Validate(ctx, token)
	if err != nil {
		return nil, classify("token validation", err)
	}

	return &ResolvedClaims{BaselineClaims: base}, nil
}

// ClaimsCachingAuthorizer assembles resolved claims from multiple sources
// (token, profile, domain data) and amortizes the assembly cost across the
// token's lifetime through a digest-keyed cache. Validation still happens
// on every request; only the assembled claims are cached.
type ClaimsCachingAuthorizer struct {
	validator TokenValidator
	cache     ClaimsCache
	assembler Assembler
	logger    Logger
}

// NewClaimsCachingAuthorizer builds an Authorizer that caches assembled
// claims keyed by a digest of the access token.
func NewClaimsCachingAuthorizer(validator TokenValidator, cache ClaimsCache, assembler Assembler, logger Logger) *ClaimsCachingAuthorizer {
	if logger == nil {
		logger = NopLogger{}
	}
	return &ClaimsCachingAuthorizer{
		validator: validator,
		cache:     cache,
		assembler: assembler,
		logger:    logger,
	}
}

// Authorize validates the token, then resolves claims from the cache or,
// on a miss, by invoking the assembler and storing the result bounded by
// the token's own expiry.
//
// Two requests racing on the same cache miss may both assemble; last write
// wins. Each request still observes an internally consistent claims value.
func (a *ClaimsCachingAuthorizer) Authorize(ctx context.Context, token string) (*ResolvedClaims, error) {
	if token == "" {
		return nil, ErrTokenMissing
	}

	base, err := a.validator.Validate(ctx, token)
	if err != nil {
		return nil, classify("token validation", err)
	}

	digest := DigestToken(token)
	if claims, ok := a.cache.Get(digest); ok {
		a.logger.Debugf("claims cache hit for subject %s", claims.Subject)
		return claims, nil
	}

	claims, err := a.assembler.Assemble(ctx, token, base)
	if err != nil {
		return nil, classify("claims assembly", err)
	}

	// The token already passed validation; an expiry that slipped into the
	// past since then only prevents caching, not authorization.
	a.cache.Put(digest, claims, base.ExpiresAt)
	return claims, nil
}
