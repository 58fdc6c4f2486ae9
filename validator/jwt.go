package validator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/authward/go-authz-middleware/core"
	"github.com/authward/go-authz-middleware/jwks"
)

// JWTValidator verifies tokens locally: signature against the key source's
// cached set, then the standard time, issuer, and audience claims. The hot
// path makes no network call once keys are cached; only an unknown key id
// triggers a refetch, and exactly one before failing.
type JWTValidator struct {
	keys     jwks.KeySource
	issuer   string
	audience string
	skew     time.Duration
	clock    jwt.Clock
}

// JWTOption configures a JWTValidator.
type JWTOption func(*JWTValidator) error

// WithClockSkew sets the leeway applied to time-based claim checks.
// Default: no leeway.
func WithClockSkew(skew time.Duration) JWTOption {
	return func(v *JWTValidator) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		v.skew = skew
		return nil
	}
}

// WithClock overrides the time source used for claim validation. Useful in
// tests.
func WithClock(clock jwt.Clock) JWTOption {
	return func(v *JWTValidator) error {
		if clock == nil {
			return errors.New("clock cannot be nil")
		}
		v.clock = clock
		return nil
	}
}

// NewJWT builds a JWTValidator that trusts tokens issued by issuer for
// audience, verified against keys.
func NewJWT(keys jwks.KeySource, issuer, audience string, opts ...JWTOption) (*JWTValidator, error) {
	if keys == nil {
		return nil, errors.New("key source is required")
	}
	if issuer == "" {
		return nil, errors.New("issuer is required")
	}
	if audience == "" {
		return nil, errors.New("audience is required")
	}

	v := &JWTValidator{
		keys:     keys,
		issuer:   issuer,
		audience: audience,
	}
	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return v, nil
}

// Validate implements core.TokenValidator.
func (v *JWTValidator) Validate(ctx context.Context, token string) (core.BaselineClaims, error) {
	set, err := v.keys.Keys(ctx)
	if err != nil {
		return core.BaselineClaims{}, core.NewUpstreamError("jwks fetch", err)
	}

	msg, err := jws.Parse([]byte(token))
	if err != nil {
		return core.BaselineClaims{}, core.NewInvalidTokenError(fmt.Errorf("could not parse token: %w", err))
	}
	sigs := msg.Signatures()
	if len(sigs) == 0 {
		return core.BaselineClaims{}, core.NewInvalidTokenError(errors.New("token carries no signature"))
	}

	// Unknown key id: refetch the key set once before failing. Key
	// rotation at the authority is the only legitimate cause of a miss.
	if kid := sigs[0].ProtectedHeaders().KeyID(); kid != "" {
		if _, ok := set.LookupKeyID(kid); !ok {
			set, err = v.keys.Refresh(ctx)
			if err != nil {
				return core.BaselineClaims{}, core.NewUpstreamError("jwks refresh", err)
			}
			if _, ok := set.LookupKeyID(kid); !ok {
				return core.BaselineClaims{}, core.NewInvalidTokenError(fmt.Errorf("signing key %q not found", kid))
			}
		}
	}

	parsed, err := jwt.Parse(
		[]byte(token),
		jwt.WithKeySet(set, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(false),
	)
	if err != nil {
		return core.BaselineClaims{}, core.NewInvalidTokenError(fmt.Errorf("signature verification failed: %w", err))
	}

	validateOpts := []jwt.ValidateOption{
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
		jwt.WithAcceptableSkew(v.skew),
	}
	if v.clock != nil {
		validateOpts = append(validateOpts, jwt.WithClock(v.clock))
	}
	if err := jwt.Validate(parsed, validateOpts...); err != nil {
		return core.BaselineClaims{}, core.NewInvalidTokenError(err)
	}

	return core.BaselineClaims{
		Subject:   parsed.Subject(),
		ClientID:  clientIDFromToken(parsed),
		Scope:     scopeFromToken(parsed),
		ExpiresAt: parsed.Expiration(),
	}, nil
}
