// Package authzgin adapts the authorization middleware to Gin.
package authzgin

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	authzmiddleware "github.com/authward/go-authz-middleware"
	"github.com/authward/go-authz-middleware/core"
)

// DefaultClaimsKey is the gin.Context key under which resolved claims
// are stored.
const DefaultClaimsKey = "claims"

var (
	ErrMissingClaims = errors.New("no resolved claims found in context")
	ErrInvalidClaims = errors.New("invalid resolved claims type")
)

// ginContextKey carries the *gin.Context through the request context so
// the error handler can reach it.
type ginContextKey struct{}

type ginMiddlewareConfig struct {
	errorHandler   func(*gin.Context, error)
	contextKey     string
	tokenExtractor authzmiddleware.TokenExtractor
	unsecuredPaths []string
}

// NewGinMiddleware wraps the given authorizer as a Gin handler. The
// authorizer must be safe for concurrent use. On success the resolved
// claims are available via GetClaims and via core.GetClaims on the
// request context.
func NewGinMiddleware(authorizer core.Authorizer, opts ...Option) (gin.HandlerFunc, error) {
	config := &ginMiddlewareConfig{
		errorHandler: defaultGinErrorHandler,
		contextKey:   DefaultClaimsKey,
	}
	for _, opt := range opts {
		opt(config)
	}

	middlewareOpts := []authzmiddleware.Option{
		authzmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			c, ok := r.Context().Value(ginContextKey{}).(*gin.Context)
			if !ok || c == nil {
				authzmiddleware.DefaultErrorHandler(w, r, err)
				return
			}
			config.errorHandler(c, err)
		}),
	}
	if config.tokenExtractor != nil {
		middlewareOpts = append(middlewareOpts, authzmiddleware.WithTokenExtractor(config.tokenExtractor))
	}
	if len(config.unsecuredPaths) > 0 {
		middlewareOpts = append(middlewareOpts, authzmiddleware.WithUnsecuredPaths(config.unsecuredPaths...))
	}

	middleware, err := authzmiddleware.New(authorizer, middlewareOpts...)
	if err != nil {
		return nil, err
	}

	return func(c *gin.Context) {
		// Make the gin context reachable from the error handler, which only
		// sees the plain http.Request.
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ginContextKey{}, c))

		encounteredError := true
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			encounteredError = false
			c.Request = r

			if claims, err := core.GetClaims(r.Context()); err == nil {
				c.Set(config.contextKey, claims)
			}

			c.Next()
		}

		middleware.CheckAuth(handler).ServeHTTP(c.Writer, c.Request)

		if encounteredError {
			c.Abort()
		}
	}, nil
}

func defaultGinErrorHandler(c *gin.Context, err error) {
	status := http.StatusUnauthorized
	message := "Unauthorized."
	if !core.IsAuthFailure(err) {
		status = http.StatusInternalServerError
		message = "Something went wrong while authorizing the request."
	}
	c.AbortWithStatusJSON(status, gin.H{"message": message})
}

// GetClaims extracts the resolved claims from the Gin context.
func GetClaims(c *gin.Context, contextKey string) (*core.ResolvedClaims, error) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}
	claims, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingClaims
	}

	resolved, ok := claims.(*core.ResolvedClaims)
	if !ok {
		return nil, ErrInvalidClaims
	}
	return resolved, nil
}
