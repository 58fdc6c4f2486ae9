package authzmiddleware

import "errors"

// Option configures the AuthorizationMiddleware. Options returning an
// error abort construction.
type Option func(*AuthorizationMiddleware) error

// Sentinel errors for configuration validation.
var (
	ErrErrorHandlerNil   = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil = errors.New("tokenExtractor cannot be nil")
	ErrLoggerNil         = errors.New("logger cannot be nil")
	ErrMetricsNil        = errors.New("metrics cannot be nil")
	ErrTracerNil         = errors.New("tracer cannot be nil")
)

// WithErrorHandler sets the handler called on every failed authorization.
// See the ErrorHandler type for the contract.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *AuthorizationMiddleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithTokenExtractor sets the function to extract the token from the
// request.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(m *AuthorizationMiddleware) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		m.tokenExtractor = e
		return nil
	}
}

// WithUnsecuredPaths configures request paths that bypass authorization
// entirely, regardless of header presence or validity. Matched requests
// proceed with no claims in context.
func WithUnsecuredPaths(paths ...string) Option {
	return func(m *AuthorizationMiddleware) error {
		for _, p := range paths {
			if p == "" {
				return errors.New("unsecured path cannot be empty")
			}
			m.unsecuredPaths[p] = struct{}{}
		}
		return nil
	}
}

// WithCredentialsOptional sets whether credentials are optional. If set to
// true, a request without any token proceeds with no claims; a request
// with an invalid token is still rejected.
//
// Default: false (credentials required)
func WithCredentialsOptional(value bool) Option {
	return func(m *AuthorizationMiddleware) error {
		m.credentialsOptional = value
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests are authorized.
//
// Default: true (OPTIONS requests are authorized)
func WithValidateOnOptions(value bool) Option {
	return func(m *AuthorizationMiddleware) error {
		m.validateOnOptions = value
		return nil
	}
}

// WithLogger sets the logger used by the middleware. Raw tokens are never
// logged.
func WithLogger(logger Logger) Option {
	return func(m *AuthorizationMiddleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink for request outcome counters and
// authorization latency.
func WithMetrics(metrics Metrics) Option {
	return func(m *AuthorizationMiddleware) error {
		if metrics == nil {
			return ErrMetricsNil
		}
		m.metrics = metrics
		return nil
	}
}

// WithTracer sets the tracer wrapping the authorize path.
func WithTracer(tracer Tracer) Option {
	return func(m *AuthorizationMiddleware) error {
		if tracer == nil {
			return ErrTracerNil
		}
		m.tracer = tracer
		return nil
	}
}
