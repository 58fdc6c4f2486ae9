// Package validator implements the two token-validation strategies: local
// JWT signature verification against a cached key set, and remote token
// introspection. Both produce core.BaselineClaims and report failures
// through the core error taxonomy, so the authorizer does not care which
// one is configured.
package validator

import (
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// splitScope turns a space-separated scope string into a list, dropping
// empty segments.
func splitScope(scope string) []string {
	if scope == "" {
		return nil
	}
	return strings.Fields(scope)
}

// scopeFromToken extracts the scope list from a parsed JWT. Authorization
// servers disagree on the claim shape: "scope" as a space-separated string
// or "scp" as a JSON list are both in the wild.
func scopeFromToken(token jwt.Token) []string {
	if v, ok := token.Get("scope"); ok {
		if s, ok := v.(string); ok {
			return splitScope(s)
		}
	}
	if v, ok := token.Get("scp"); ok {
		switch list := v.(type) {
		case []string:
			return append([]string(nil), list...)
		case []interface{}:
			out := make([]string, 0, len(list))
			for _, item := range list {
				if s, ok := item.(string); ok && s != "" {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return nil
}

// clientIDFromToken extracts the client/application identifier. "client_id"
// is the RFC 9068 claim; "azp" is the OIDC equivalent.
func clientIDFromToken(token jwt.Token) string {
	if v, ok := token.Get("client_id"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	if v, ok := token.Get("azp"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
