/*
Package authzmiddleware provides HTTP middleware that authorizes requests
carrying bearer access tokens.

The middleware extracts the token, proves it valid (locally against the
authority's published JWKS, or remotely via RFC 7662 introspection),
optionally assembles enriched claims from the userinfo endpoint with a
per-token cache, and stores the resolved claims in the request context.

# Quick Start

	middleware, err := authzmiddleware.NewFromConfig(ctx, authzmiddleware.Config{
	    IssuerURL: "https://issuer.example.com",
	    Audience:  "https://api.example.com",
	})
	if err != nil {
	    log.Fatal(err)
	}

	http.Handle("/api/", middleware.CheckAuth(apiHandler))
	http.ListenAndServe(":8080", nil)

Handlers read claims through the core package:

	func apiHandler(w http.ResponseWriter, r *http.Request) {
	    claims, err := core.GetClaims(r.Context())
	    if err != nil {
	        http.Error(w, "Unauthorized", http.StatusUnauthorized)
	        return
	    }
	    fmt.Fprintf(w, "Hello, %s!", claims.Subject)
	}

# Composition

NewFromConfig fetches the authority's discovery document once at startup
and wires one of two authorizer strategies:

  - StrategyStandard: the claims carried by the token are the final
    claims.
  - StrategyClaimsCaching: on a cache miss the userinfo endpoint is
    called and the result cached, keyed by a SHA-256 digest of the
    token. Entries never outlive the token's own expiry.

Advanced callers can skip NewFromConfig and assemble the pieces from the
core, validator, jwks, claimscache and userinfo packages directly.

# Error Responses

Response bodies stay generic so nothing about the failure leaks to the
caller. Missing or invalid tokens produce 401, upstream outages (key
fetch, introspection, userinfo) produce 500. Detail is written to the
configured logger only, never to the response, and raw tokens are never
logged.

# Framework Adapters

framework/echo, framework/gin and framework/grpc adapt the same
pipeline to Echo handlers, Gin handlers and gRPC server interceptors.

The middleware is immutable after construction and safe for concurrent
use.
*/
package authzmiddleware
