package core

import (
	"errors"
	"fmt"
)

// Sentinel errors for the authorization taxonomy.
var (
	// ErrTokenMissing is returned when no bearer token is present on the
	// request. It maps to a 401 response.
	ErrTokenMissing = errors.New("token missing")

	// ErrTokenInvalid is returned when a token is malformed, not signed by
	// a trusted key, expired, or reported inactive by the authorization
	// server. It maps to a 401 response and is typically wrapped with a
	// more specific validation error.
	ErrTokenInvalid = errors.New("token invalid")

	// ErrUpstreamUnavailable is returned when a remote dependency (key
	// fetch, introspection, claims assembly) could not complete. It maps
	// to a 500 response: the caller cannot fix it by re-authenticating.
	ErrUpstreamUnavailable = errors.New("authorization upstream unavailable")

	// ErrClaimsNotFound is returned when claims cannot be retrieved from
	// the request context.
	ErrClaimsNotFound = errors.New("claims not found in context")
)

// invalidTokenError wraps a validation error with the concrete error
// ErrTokenInvalid. We do not expose this publicly because the interface
// methods of Is and Unwrap should give the user all they need.
type invalidTokenError struct {
	details error
}

// Is allows the error to support equality to ErrTokenInvalid.
func (e *invalidTokenError) Is(target error) bool {
	return target == ErrTokenInvalid
}

func (e *invalidTokenError) Error() string {
	return fmt.Sprintf("%s: %s", ErrTokenInvalid, e.details)
}

// Unwrap allows the error to support equality to the underlying error and
// not just ErrTokenInvalid.
func (e *invalidTokenError) Unwrap() error {
	return e.details
}

// NewInvalidTokenError wraps details so that errors.Is reports
// ErrTokenInvalid.
func NewInvalidTokenError(details error) error {
	return &invalidTokenError{details: details}
}

// upstreamError wraps a remote-dependency failure with the concrete error
// ErrUpstreamUnavailable, recording which operation failed.
type upstreamError struct {
	op      string
	details error
}

// Is allows the error to support equality to ErrUpstreamUnavailable.
func (e *upstreamError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

func (e *upstreamError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrUpstreamUnavailable, e.op, e.details)
}

// Unwrap allows the error to support equality to the underlying error and
// not just ErrUpstreamUnavailable.
func (e *upstreamError) Unwrap() error {
	return e.details
}

// NewUpstreamError wraps details so that errors.Is reports
// ErrUpstreamUnavailable. The op names the remote operation that failed;
// it ends up in internal logs only, never in responses.
func NewUpstreamError(op string, details error) error {
	return &upstreamError{op: op, details: details}
}

// IsAuthFailure reports whether err is a caller-fixable authorization
// failure (missing or invalid token) rather than an upstream outage.
// Auth failures map to 401 responses, everything else to 500.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrTokenMissing) || errors.Is(err, ErrTokenInvalid)
}

// classify maps an arbitrary error onto the authorization taxonomy.
// Errors already in the taxonomy pass through; anything else is treated
// as an upstream failure so that authorization fails closed.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTokenMissing),
		errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrUpstreamUnavailable):
		return err
	default:
		return NewUpstreamError(op, err)
	}
}
