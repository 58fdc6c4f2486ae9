package authzmiddleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/authward/go-authz-middleware/claimscache"
	"github.com/authward/go-authz-middleware/core"
	"github.com/authward/go-authz-middleware/internal/oidc"
	"github.com/authward/go-authz-middleware/jwks"
	"github.com/authward/go-authz-middleware/userinfo"
	"github.com/authward/go-authz-middleware/validator"
)

// Strategy selects how resolved claims are produced after validation.
type Strategy string

const (
	// StrategyStandard uses the baseline claims from the token as the
	// final claims. No caching, no assembly.
	StrategyStandard Strategy = "standard"

	// StrategyClaimsCaching assembles claims from the userinfo endpoint on
	// a cache miss and serves subsequent requests for the same token from
	// the cache.
	StrategyClaimsCaching Strategy = "claims-caching"
)

// ValidationMode selects how tokens are proven valid.
type ValidationMode string

const (
	// ModeJWT verifies token signatures locally against the authority's
	// published keys.
	ModeJWT ValidationMode = "jwt"

	// ModeIntrospection asks the authority's introspection endpoint on
	// every request.
	ModeIntrospection ValidationMode = "introspection"
)

const (
	defaultCacheMaxTTL = 5 * time.Minute
	defaultHTTPTimeout = 10 * time.Second
	defaultClockSkew   = 30 * time.Second
)

// Config describes a complete middleware setup resolvable against one
// authorization server.
type Config struct {
	// IssuerURL is the authority's issuer URL; its discovery document is
	// fetched once at startup.
	IssuerURL string

	// Audience is the audience value tokens must carry. Required for
	// ModeJWT.
	Audience string

	// Strategy selects the authorizer variant. Default: StrategyStandard.
	Strategy Strategy

	// ValidationMode selects the validator variant. Default: ModeJWT.
	ValidationMode ValidationMode

	// ClientID and ClientSecret authenticate introspection calls.
	// Required for ModeIntrospection.
	ClientID     string
	ClientSecret string

	// CacheMaxTTL caps the lifetime of cached resolved claims. Entries
	// also never outlive the token's own expiry. Default: 5m.
	CacheMaxTTL time.Duration

	// UnsecuredPaths bypass authorization entirely.
	UnsecuredPaths []string

	// HTTPTimeout bounds every outbound call (discovery, key fetch,
	// introspection, userinfo). Default: 10s.
	HTTPTimeout time.Duration

	// ClockSkew is the leeway for time-based claim checks in ModeJWT.
	// Default: 30s.
	ClockSkew time.Duration
}

// normalize sets default values for optional fields.
func (c *Config) normalize() {
	if c.Strategy == "" {
		c.Strategy = StrategyStandard
	}
	if c.ValidationMode == "" {
		c.ValidationMode = ModeJWT
	}
	if c.CacheMaxTTL <= 0 {
		c.CacheMaxTTL = defaultCacheMaxTTL
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = defaultHTTPTimeout
	}
	if c.ClockSkew <= 0 {
		c.ClockSkew = defaultClockSkew
	}
}

// validate ensures the configuration is usable.
func (c Config) validate() error {
	switch {
	case c.IssuerURL == "":
		return errors.New("issuer URL is required")
	case c.Strategy != StrategyStandard && c.Strategy != StrategyClaimsCaching:
		return fmt.Errorf("unknown strategy %q", c.Strategy)
	case c.ValidationMode != ModeJWT && c.ValidationMode != ModeIntrospection:
		return fmt.Errorf("unknown validation mode %q", c.ValidationMode)
	case c.ValidationMode == ModeJWT && c.Audience == "":
		return errors.New("audience is required for jwt validation")
	case c.ValidationMode == ModeIntrospection && (c.ClientID == "" || c.ClientSecret == ""):
		return errors.New("client credentials are required for introspection")
	}
	return nil
}

// NewFromConfig is the composition root: it performs the one startup
// discovery fetch, wires the configured validator, cache, assembler and
// authorizer, and returns a ready middleware. A discovery failure is
// returned as an error; the caller must not start serving without it.
func NewFromConfig(ctx context.Context, cfg Config, opts ...Option) (*AuthorizationMiddleware, error) {
	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	issuerURL, err := url.Parse(cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse issuer URL: %w", err)
	}

	client := &http.Client{Timeout: cfg.HTTPTimeout}
	endpoints, err := oidc.GetWellKnownEndpointsFromIssuerURL(ctx, client, *issuerURL, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("endpoint discovery failed: %w", err)
	}

	tokenValidator, err := buildValidator(cfg, endpoints, client)
	if err != nil {
		return nil, err
	}

	logger, metrics := observersFromOptions(opts)
	authorizer, err := buildAuthorizer(cfg, endpoints, client, tokenValidator, logger, metrics)
	if err != nil {
		return nil, err
	}

	opts = append(opts, WithUnsecuredPaths(cfg.UnsecuredPaths...))
	return New(authorizer, opts...)
}

func buildValidator(cfg Config, endpoints *oidc.WellKnownEndpoints, client *http.Client) (core.TokenValidator, error) {
	switch cfg.ValidationMode {
	case ModeIntrospection:
		if endpoints.IntrospectionEndpoint == "" {
			return nil, errors.New("authority advertises no introspection endpoint")
		}
		return validator.NewIntrospection(
			endpoints.IntrospectionEndpoint,
			cfg.ClientID,
			cfg.ClientSecret,
			validator.WithIntrospectionHTTPClient(client),
		)
	default:
		if endpoints.JWKSURI == "" {
			return nil, errors.New("authority advertises no jwks endpoint")
		}
		keys, err := jwks.NewCachingProvider(endpoints.JWKSURI, jwks.WithHTTPClient(client))
		if err != nil {
			return nil, err
		}
		jwtOpts := []validator.JWTOption{}
		if cfg.ClockSkew > 0 {
			jwtOpts = append(jwtOpts, validator.WithClockSkew(cfg.ClockSkew))
		}
		return validator.NewJWT(keys, cfg.IssuerURL, cfg.Audience, jwtOpts...)
	}
}

func buildAuthorizer(
	cfg Config,
	endpoints *oidc.WellKnownEndpoints,
	client *http.Client,
	tokenValidator core.TokenValidator,
	logger Logger,
	metrics Metrics,
) (core.Authorizer, error) {
	if cfg.Strategy == StrategyStandard {
		return core.NewStandardAuthorizer(tokenValidator, logger), nil
	}

	if endpoints.UserinfoEndpoint == "" {
		return nil, errors.New("authority advertises no userinfo endpoint")
	}
	assembler, err := userinfo.NewClient(endpoints.UserinfoEndpoint, userinfo.WithHTTPClient(client))
	if err != nil {
		return nil, err
	}
	cache, err := claimscache.New(cfg.CacheMaxTTL, userinfo.JSONCodec{}, claimscache.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	return core.NewClaimsCachingAuthorizer(tokenValidator, cache, assembler, logger), nil
}

// observersFromOptions peeks at the options for a configured logger and
// metrics sink so the authorizer and cache can share them. Option errors
// are surfaced later by New.
func observersFromOptions(opts []Option) (Logger, Metrics) {
	probe := &AuthorizationMiddleware{
		logger:         core.NopLogger{},
		metrics:        core.NopMetrics{},
		unsecuredPaths: map[string]struct{}{},
	}
	for _, opt := range opts {
		_ = opt(probe)
	}
	return probe.logger, probe.metrics
}
