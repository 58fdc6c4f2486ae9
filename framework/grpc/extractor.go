package authzgrpc

import (
	"context"
	"strings"

	"google.golang.org/grpc/metadata"
)

// TokenExtractor extracts a bearer token from incoming gRPC metadata.
// An empty result with a nil error means no token was presented.
type TokenExtractor func(ctx context.Context) (string, error)

// MetadataTokenExtractor reads the "authorization" metadata field. The
// value must be exactly "Bearer" and the token separated by one space,
// scheme case-sensitive. Anything else counts as no token presented.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	values := md.Get("authorization")
	if len(values) == 0 || values[0] == "" {
		return "", nil
	}

	parts := strings.Split(values[0], " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", nil
	}
	return parts[1], nil
}

// MetadataFieldTokenExtractor reads a raw token from the given metadata
// field, with no scheme prefix.
func MetadataFieldTokenExtractor(field string) TokenExtractor {
	return func(ctx context.Context) (string, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return "", nil
		}

		values := md.Get(field)
		if len(values) == 0 || values[0] == "" {
			return "", nil
		}
		return values[0], nil
	}
}

// MultiTokenExtractor runs the given extractors in order and returns the
// first token found.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(ctx context.Context) (string, error) {
		for _, ex := range extractors {
			token, err := ex(ctx)
			if err != nil {
				return "", err
			}
			if token != "" {
				return token, nil
			}
		}
		return "", nil
	}
}
