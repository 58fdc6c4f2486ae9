// Package authzgrpc adapts the authorization pipeline to gRPC server
// interceptors. Token-related failures surface as Unauthenticated,
// upstream outages as Internal.
package authzgrpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/authward/go-authz-middleware/core"
)

// Interceptor drives the configured Authorizer once per RPC.
type Interceptor struct {
	authorizer          core.Authorizer
	tokenExtractor      TokenExtractor
	credentialsOptional bool
	unsecuredMethods    map[string]struct{}
	logger              core.Logger
}

// New constructs an Interceptor around the given authorizer.
func New(authorizer core.Authorizer, opts ...Option) (*Interceptor, error) {
	if authorizer == nil {
		return nil, status.Error(codes.InvalidArgument, "authorizer is required")
	}

	i := &Interceptor{
		authorizer:       authorizer,
		tokenExtractor:   MetadataTokenExtractor,
		unsecuredMethods: map[string]struct{}{},
		logger:           core.NopLogger{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// authenticate runs extraction and authorization for one RPC and returns
// the context carrying resolved claims, or a status error.
func (i *Interceptor) authenticate(ctx context.Context, method string) (context.Context, error) {
	if _, ok := i.unsecuredMethods[method]; ok {
		return ctx, nil
	}

	token, err := i.tokenExtractor(ctx)
	if err != nil {
		i.logger.Errorf("failed to extract token for %s: %v", method, err)
		return nil, status.Errorf(codes.Unauthenticated, "error extracting token")
	}

	if token == "" && i.credentialsOptional {
		return ctx, nil
	}

	claims, err := i.authorizer.Authorize(ctx, token)
	if err != nil {
		return nil, i.toStatus(method, err)
	}

	return core.SetClaims(ctx, claims), nil
}

// toStatus maps the authorization taxonomy to gRPC codes. Response
// messages stay generic; detail goes to the internal log only.
func (i *Interceptor) toStatus(method string, err error) error {
	if core.IsAuthFailure(err) {
		i.logger.Debugf("authorization rejected %s: %v", method, err)
		return status.Error(codes.Unauthenticated, "request not authorized")
	}
	i.logger.Errorf("authorization failed %s: %v", method, err)
	return status.Error(codes.Internal, "authorization temporarily unavailable")
}

// UnaryServerInterceptor returns a unary interceptor enforcing
// authorization before each handler call.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		authCtx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(authCtx, req)
	}
}

// StreamServerInterceptor returns a stream interceptor enforcing
// authorization before the stream handler runs.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		authCtx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: authCtx})
	}
}

// wrappedServerStream overrides the stream context with the one carrying
// resolved claims.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
