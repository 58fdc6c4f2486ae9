package userinfo

import (
	"encoding/json"

	"github.com/authward/go-authz-middleware/core"
)

// JSONCodec serializes resolved claims as JSON for cache storage. It
// implements core.Codec.
type JSONCodec struct{}

// Marshal implements core.Codec.
func (JSONCodec) Marshal(claims *core.ResolvedClaims) ([]byte, error) {
	return json.Marshal(claims)
}

// Unmarshal implements core.Codec.
func (JSONCodec) Unmarshal(data []byte) (*core.ResolvedClaims, error) {
	var claims core.ResolvedClaims
	if err := json.Unmarshal(data, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}
