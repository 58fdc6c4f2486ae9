package authzgin

import (
	"github.com/gin-gonic/gin"

	authzmiddleware "github.com/authward/go-authz-middleware"
)

// Option configures the Gin adapter.
type Option func(*ginMiddlewareConfig)

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler func(*gin.Context, error)) Option {
	return func(config *ginMiddlewareConfig) {
		config.errorHandler = handler
	}
}

// WithContextKey sets the gin.Context key under which claims are stored.
func WithContextKey(key string) Option {
	return func(config *ginMiddlewareConfig) {
		config.contextKey = key
	}
}

// WithTokenExtractor sets a custom token extractor.
func WithTokenExtractor(extractor authzmiddleware.TokenExtractor) Option {
	return func(config *ginMiddlewareConfig) {
		config.tokenExtractor = extractor
	}
}

// WithUnsecuredPaths configures paths that bypass authorization.
func WithUnsecuredPaths(paths ...string) Option {
	return func(config *ginMiddlewareConfig) {
		config.unsecuredPaths = append(config.unsecuredPaths, paths...)
	}
}
