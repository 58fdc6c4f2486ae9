package authzmiddleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/authward/go-authz-middleware/core"
)

// AuthorizationMiddleware is the boundary adapter invoked once per inbound
// request: it extracts the bearer token, drives the configured Authorizer,
// and maps the outcome to either "continue with claims in context" or an
// error response.
type AuthorizationMiddleware struct {
	authorizer          core.Authorizer
	errorHandler        ErrorHandler
	tokenExtractor      TokenExtractor
	unsecuredPaths      map[string]struct{}
	credentialsOptional bool
	validateOnOptions   bool
	logger              Logger
	metrics             Metrics
	tracer              Tracer
}

// New constructs an AuthorizationMiddleware around the given authorizer.
// See NewFromConfig for the full composition root that also builds the
// authorizer from configuration.
func New(authorizer core.Authorizer, opts ...Option) (*AuthorizationMiddleware, error) {
	if authorizer == nil {
		return nil, errors.New("authorizer is required")
	}

	m := &AuthorizationMiddleware{
		authorizer:        authorizer,
		errorHandler:      DefaultErrorHandler,
		tokenExtractor:    AuthHeaderTokenExtractor,
		unsecuredPaths:    map[string]struct{}{},
		validateOnOptions: true,
		logger:            core.NopLogger{},
		metrics:           NoopMetrics{},
		tracer:            &NoopTracer{},
	}
	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return m, nil
}

// CheckAuth wraps next so that it only runs for authorized requests (or
// requests matching an unsecured path, which bypass the state machine
// entirely and proceed with no claims).
func (m *AuthorizationMiddleware) CheckAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := m.unsecuredPaths[r.URL.Path]; ok {
			m.metrics.IncCounter(metricAuthRequests, map[string]string{"outcome": outcomeUnsecured})
			next.ServeHTTP(w, r)
			return
		}

		if !m.validateOnOptions && r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token, err := m.tokenExtractor(r)
		if err != nil {
			// An extractor error means a token was presented in a broken
			// non-header form; it is not the same as a missing token.
			m.logger.Errorf("failed to extract token from request: %v", err)
			m.metrics.IncCounter(metricAuthRequests, map[string]string{"outcome": outcomeExtraction})
			m.errorHandler(w, r, fmt.Errorf("error extracting token: %w", err))
			return
		}

		if token == "" && m.credentialsOptional {
			next.ServeHTTP(w, r)
			return
		}

		ctx, span := m.tracer.StartSpan(r.Context(), "authorize")
		start := time.Now()
		claims, err := m.authorizer.Authorize(ctx, token)
		m.metrics.ObserveHistogram(metricAuthLatency, time.Since(start).Seconds(), nil)

		if err != nil {
			outcome := m.logFailure(r, err)
			m.metrics.IncCounter(metricAuthRequests, map[string]string{"outcome": outcome})
			span.SetTag("auth.outcome", outcome)
			span.Finish()
			m.errorHandler(w, r, err)
			return
		}

		m.metrics.IncCounter(metricAuthRequests, map[string]string{"outcome": outcomeSuccess})
		span.SetTag("auth.outcome", outcomeSuccess)
		span.Finish()

		r = r.Clone(core.SetClaims(ctx, claims))
		next.ServeHTTP(w, r)
	})
}

// logFailure records the failure with full internal detail (the response
// body stays generic) and returns the metrics outcome label.
func (m *AuthorizationMiddleware) logFailure(r *http.Request, err error) string {
	switch {
	case errors.Is(err, core.ErrTokenMissing):
		m.logger.Debugf("authorization rejected %s %s: no bearer token", r.Method, r.URL.Path)
		return outcomeMissing
	case errors.Is(err, core.ErrTokenInvalid):
		m.logger.Debugf("authorization rejected %s %s: %v", r.Method, r.URL.Path, err)
		return outcomeInvalid
	default:
		m.logger.Errorf("authorization failed %s %s: %v", r.Method, r.URL.Path, err)
		return outcomeUpstream
	}
}
