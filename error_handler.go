package authzmiddleware

import (
	"errors"
	"net/http"

	"github.com/authward/go-authz-middleware/core"
)

// ErrorHandler is a handler which is called when an error occurs in the
// middleware. It determines the response for every failure outcome of the
// authorization state machine. The err can be checked against
// core.ErrTokenMissing, core.ErrTokenInvalid and
// core.ErrUpstreamUnavailable. The default handler returns 401 for the
// first two and 500 for everything else. If you implement your own
// ErrorHandler you MUST keep that separation: an upstream failure is not
// something the client can fix by re-authenticating, and an
// authentication failure must never leak which check rejected the token.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorHandler is the default error handler implementation for the
// middleware. Authentication failures share one generic 401 body; upstream
// and unexpected failures share one generic 500 body. The distinguishing
// detail is logged internally by the middleware, never returned.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")

	switch {
	case errors.Is(err, core.ErrTokenMissing), errors.Is(err, core.ErrTokenInvalid):
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthorized."}`))
	default:
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Something went wrong while authorizing the request."}`))
	}
}
