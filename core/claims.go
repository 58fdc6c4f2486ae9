package core

import (
	"context"
	"crypto/sha256"
	"time"
)

// BaselineClaims are the protocol claims a TokenValidator extracts from a
// token. They are produced fresh on every validation and are never cached
// without going through assembly first.
type BaselineClaims struct {
	Subject   string
	ClientID  string
	Scope     []string
	ExpiresAt time.Time
}

// ResolvedClaims are the claims attached to the request context: the
// baseline claims plus whatever the assembler contributed. A ResolvedClaims
// value is immutable once constructed for a given request.
type ResolvedClaims struct {
	BaselineClaims

	// Profile holds user-profile attributes returned by the userinfo
	// endpoint (or another assembler source).
	Profile map[string]any

	// Entitlements holds domain-specific grants resolved during assembly.
	Entitlements []string
}

// HasScope reports whether the token was issued with the given scope.
func (c *ResolvedClaims) HasScope(scope string) bool {
	for _, s := range c.Scope {
		if s == scope {
			return true
		}
	}
	return false
}

// Assembler augments baseline claims with profile data and entitlements.
// The access token is passed through because assembly sources such as the
// userinfo endpoint authenticate with it; implementations must not retain
// it.
type Assembler interface {
	Assemble(ctx context.Context, accessToken string, base BaselineClaims) (*ResolvedClaims, error)
}

// Codec serializes resolved claims for cache storage so the cache stays
// decoupled from the claims shape.
type Codec interface {
	Marshal(claims *ResolvedClaims) ([]byte, error)
	Unmarshal(data []byte) (*ResolvedClaims, error)
}

// TokenDigest is a one-way digest of a raw access token, used as a cache
// key so the token itself is never stored.
type TokenDigest [sha256.Size]byte

// DigestToken computes the cache key for a raw token.
func DigestToken(token string) TokenDigest {
	return sha256.Sum256([]byte(token))
}
