// Package userinfo implements claims assembly backed by the authorization
// server's userinfo endpoint: profile attributes and entitlements are
// fetched with the caller's own bearer token and merged into the resolved
// claims.
package userinfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/authward/go-authz-middleware/core"
)

// maxResponseBytes bounds the userinfo response body. Typical responses
// are well under a kilobyte.
const maxResponseBytes = 1 * 1024 * 1024

// Client fetches user-profile data from a userinfo endpoint. It implements
// core.Assembler.
type Client struct {
	endpoint string
	client   *http.Client
}

// Option configures a Client.
type Option func(*Client) error

// WithHTTPClient sets the HTTP client used for userinfo calls. The
// client's timeout bounds how long assembly may suspend.
func WithHTTPClient(c *http.Client) Option {
	return func(u *Client) error {
		if c == nil {
			return errors.New("HTTP client cannot be nil")
		}
		u.client = c
		return nil
	}
}

// NewClient builds a Client for the given userinfo endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("userinfo endpoint is required")
	}

	u := &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		if err := opt(u); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return u, nil
}

// Assemble implements core.Assembler: it calls the userinfo endpoint with
// the caller's token and merges the returned profile into the baseline
// claims. The "entitlements" profile field, when present as a string list,
// is lifted into ResolvedClaims.Entitlements.
func (u *Client) Assemble(ctx context.Context, accessToken string, base core.BaselineClaims) (*core.ResolvedClaims, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("could not build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("userinfo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP code %d from userinfo endpoint", resp.StatusCode)
	}

	var profile map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&profile); err != nil {
		return nil, fmt.Errorf("could not decode userinfo response: %w", err)
	}

	claims := &core.ResolvedClaims{
		BaselineClaims: base,
		Profile:        profile,
		Entitlements:   entitlementsFromProfile(profile),
	}
	return claims, nil
}

func entitlementsFromProfile(profile map[string]any) []string {
	raw, ok := profile["entitlements"]
	if !ok {
		return nil
	}
	switch list := raw.(type) {
	case []string:
		return append([]string(nil), list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
