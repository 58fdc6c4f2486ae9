// Package oidc fetches the authorization server's discovery document. The
// document is fetched once at startup by the composition root; a failure
// there is fatal because the service must not serve without the
// authority's endpoints.
package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
)

// WellKnownEndpoints holds the well known OIDC endpoints the module uses.
type WellKnownEndpoints struct {
	Issuer                string `json:"issuer"`
	JWKSURI               string `json:"jwks_uri"`
	IntrospectionEndpoint string `json:"introspection_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
}

// GetWellKnownEndpointsFromIssuerURL gets the well known endpoints for the
// passed in issuer url. The issuer claim inside the document must match
// expectedIssuer, which guards against a misconfigured or spoofed
// authority.
func GetWellKnownEndpointsFromIssuerURL(
	ctx context.Context,
	client *http.Client,
	issuerURL url.URL,
	expectedIssuer string,
) (*WellKnownEndpoints, error) {
	issuerURL.Path = path.Join(issuerURL.Path, ".well-known/openid-configuration")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, issuerURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request to get well known endpoints: %w", err)
	}

	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not get well known endpoints from url %s: %w", issuerURL.String(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d getting well known endpoints from url %s", resp.StatusCode, issuerURL.String())
	}

	var wkEndpoints WellKnownEndpoints
	if err = json.NewDecoder(resp.Body).Decode(&wkEndpoints); err != nil {
		return nil, fmt.Errorf("could not decode json body when getting well known endpoints: %w", err)
	}

	if wkEndpoints.Issuer != expectedIssuer {
		return nil, fmt.Errorf("issuer in discovery document %q does not match expected issuer %q", wkEndpoints.Issuer, expectedIssuer)
	}

	return &wkEndpoints, nil
}
