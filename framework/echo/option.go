package authzecho

import (
	"github.com/labstack/echo/v4"

	authzmiddleware "github.com/authward/go-authz-middleware"
)

// Option configures the Echo adapter.
type Option func(*echoMiddlewareConfig)

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler func(echo.Context, error)) Option {
	return func(config *echoMiddlewareConfig) {
		config.errorHandler = handler
	}
}

// WithContextKey sets the echo.Context key under which claims are stored.
func WithContextKey(key string) Option {
	return func(config *echoMiddlewareConfig) {
		config.contextKey = key
	}
}

// WithTokenExtractor sets a custom token extractor.
func WithTokenExtractor(extractor authzmiddleware.TokenExtractor) Option {
	return func(config *echoMiddlewareConfig) {
		config.tokenExtractor = extractor
	}
}

// WithUnsecuredPaths configures paths that bypass authorization.
func WithUnsecuredPaths(paths ...string) Option {
	return func(config *echoMiddlewareConfig) {
		config.unsecuredPaths = append(config.unsecuredPaths, paths...)
	}
}
