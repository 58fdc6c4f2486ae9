package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/authward/go-authz-middleware/core"
)

// IntrospectionValidator validates tokens by calling the authorization
// server's introspection endpoint with client credentials. This path
// always makes a network call; an inactive token is an authentication
// failure, while a transport or protocol failure is an upstream one.
type IntrospectionValidator struct {
	endpoint     string
	clientID     string
	clientSecret string
	client       *http.Client
	now          func() time.Time
}

// introspectionResponse is the RFC 7662 response shape, limited to the
// fields the baseline claims need.
type introspectionResponse struct {
	Active   bool   `json:"active"`
	Subject  string `json:"sub"`
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
	Expiry   int64  `json:"exp"`
}

// IntrospectionOption configures an IntrospectionValidator.
type IntrospectionOption func(*IntrospectionValidator) error

// WithIntrospectionHTTPClient sets the HTTP client used for introspection
// calls. The client's timeout bounds how long a request may suspend before
// failing as an upstream error.
func WithIntrospectionHTTPClient(c *http.Client) IntrospectionOption {
	return func(v *IntrospectionValidator) error {
		if c == nil {
			return errors.New("HTTP client cannot be nil")
		}
		v.client = c
		return nil
	}
}

// WithIntrospectionTimeSource overrides the time source used for the expiry
// check. Useful in tests.
func WithIntrospectionTimeSource(now func() time.Time) IntrospectionOption {
	return func(v *IntrospectionValidator) error {
		if now == nil {
			return errors.New("time source cannot be nil")
		}
		v.now = now
		return nil
	}
}

// NewIntrospection builds an IntrospectionValidator that posts tokens to
// endpoint authenticated with the given client credentials.
func NewIntrospection(endpoint, clientID, clientSecret string, opts ...IntrospectionOption) (*IntrospectionValidator, error) {
	if endpoint == "" {
		return nil, errors.New("introspection endpoint is required")
	}
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("client credentials are required")
	}

	v := &IntrospectionValidator{
		endpoint:     endpoint,
		clientID:     clientID,
		clientSecret: clientSecret,
		client:       &http.Client{Timeout: 30 * time.Second},
		now:          time.Now,
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return v, nil
}

// Validate implements core.TokenValidator.
func (v *IntrospectionValidator) Validate(ctx context.Context, token string) (core.BaselineClaims, error) {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return core.BaselineClaims{}, core.NewUpstreamError("introspection", err)
	}
	req.SetBasicAuth(v.clientID, v.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return core.BaselineClaims{}, core.NewUpstreamError("introspection", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.BaselineClaims{}, core.NewUpstreamError("introspection",
			fmt.Errorf("unexpected HTTP code %d from %s", resp.StatusCode, v.endpoint))
	}

	var result introspectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return core.BaselineClaims{}, core.NewUpstreamError("introspection",
			fmt.Errorf("could not decode response body: %w", err))
	}

	// active=false covers expired and revoked tokens alike; the server
	// answered, so this is an authentication failure, not an outage.
	if !result.Active {
		return core.BaselineClaims{}, core.NewInvalidTokenError(errors.New("token reported inactive"))
	}

	claims := core.BaselineClaims{
		Subject:  result.Subject,
		ClientID: result.ClientID,
		Scope:    splitScope(result.Scope),
	}
	if result.Expiry > 0 {
		claims.ExpiresAt = time.Unix(result.Expiry, 0)
		if !claims.ExpiresAt.After(v.now()) {
			return core.BaselineClaims{}, core.NewInvalidTokenError(errors.New("token expired"))
		}
	}
	return claims, nil
}
