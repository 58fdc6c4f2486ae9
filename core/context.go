package core

import "context"

// contextKey is an unexported type for context keys to prevent collisions
// with keys set by other packages.
type contextKey int

const claimsKey contextKey = iota

// SetClaims stores resolved claims in the context. This is a helper for
// middleware and interceptors to call after a successful authorization.
func SetClaims(ctx context.Context, claims *ResolvedClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims retrieves the resolved claims stored in the context, returning
// ErrClaimsNotFound when the request was not authorized (or matched an
// unsecured path and bypassed authorization).
func GetClaims(ctx context.Context) (*ResolvedClaims, error) {
	claims, ok := ctx.Value(claimsKey).(*ResolvedClaims)
	if !ok || claims == nil {
		return nil, ErrClaimsNotFound
	}
	return claims, nil
}

// MustGetClaims retrieves the resolved claims from the context or panics.
// Use only when claims are certain to exist, i.e. after the middleware has
// run on a secured path.
func MustGetClaims(ctx context.Context) *ResolvedClaims {
	claims, err := GetClaims(ctx)
	if err != nil {
		panic(err)
	}
	return claims
}

// HasClaims checks if claims exist in the context without retrieving them.
func HasClaims(ctx context.Context) bool {
	_, err := GetClaims(ctx)
	return err == nil
}
