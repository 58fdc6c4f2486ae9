package authzgrpc

import "github.com/authward/go-authz-middleware/core"

// Option configures the gRPC interceptor.
type Option func(*Interceptor)

// WithTokenExtractor sets a custom metadata token extractor.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *Interceptor) {
		if extractor != nil {
			i.tokenExtractor = extractor
		}
	}
}

// WithCredentialsOptional lets RPCs without any token through with no
// claims in context. Invalid tokens are still rejected.
func WithCredentialsOptional(value bool) Option {
	return func(i *Interceptor) {
		i.credentialsOptional = value
	}
}

// WithUnsecuredMethods configures full gRPC method names (for example
// "/grpc.health.v1.Health/Check") that bypass authorization.
func WithUnsecuredMethods(methods ...string) Option {
	return func(i *Interceptor) {
		for _, m := range methods {
			i.unsecuredMethods[m] = struct{}{}
		}
	}
}

// WithLogger sets the logger. Raw tokens are never logged.
func WithLogger(logger core.Logger) Option {
	return func(i *Interceptor) {
		if logger != nil {
			i.logger = logger
		}
	}
}
