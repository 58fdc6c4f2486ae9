// Package authzecho adapts the authorization middleware to Echo.
package authzecho

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authzmiddleware "github.com/authward/go-authz-middleware"
	"github.com/authward/go-authz-middleware/core"
)

// DefaultClaimsKey is the echo.Context key under which resolved claims
// are stored.
var DefaultClaimsKey = "claims"

type echoMiddlewareConfig struct {
	errorHandler   func(echo.Context, error)
	contextKey     string
	tokenExtractor authzmiddleware.TokenExtractor
	unsecuredPaths []string
}

// NewEchoMiddleware wraps the given authorizer as an Echo middleware.
// On success the resolved claims are available both via core.GetClaims
// on the request context and via c.Get with the configured context key.
func NewEchoMiddleware(authorizer core.Authorizer, opts ...Option) (echo.MiddlewareFunc, error) {
	config := &echoMiddlewareConfig{
		errorHandler: defaultEchoErrorHandler,
		contextKey:   DefaultClaimsKey,
	}
	for _, opt := range opts {
		opt(config)
	}

	middlewareOpts := []authzmiddleware.Option{
		authzmiddleware.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			e := echo.New()
			c := e.NewContext(r, w)
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

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			encounteredError := true
			var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
				encounteredError = false
				c.SetRequest(r)

				if claims, err := core.GetClaims(r.Context()); err == nil {
					c.Set(config.contextKey, claims)
				}

				if err := next(c); err != nil {
					c.Error(err)
				}
			}

			middleware.CheckAuth(handler).ServeHTTP(c.Response(), c.Request())

			if encounteredError {
				return nil
			}
			return nil
		}
	}, nil
}

func defaultEchoErrorHandler(c echo.Context, err error) {
	status := http.StatusUnauthorized
	message := "Unauthorized."
	if !core.IsAuthFailure(err) {
		status = http.StatusInternalServerError
		message = "Something went wrong while authorizing the request."
	}
	_ = c.JSON(status, map[string]string{"message": message})
}

// GetClaims extracts the resolved claims from the Echo context.
func GetClaims(c echo.Context, contextKey string) (*core.ResolvedClaims, bool) {
	if contextKey == "" {
		contextKey = DefaultClaimsKey
	}
	claims, ok := c.Get(contextKey).(*core.ResolvedClaims)
	return claims, ok
}
