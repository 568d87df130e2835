// Package tenant derives the tenant identifier from a bearer token.
//
// Decoding is deliberately unverified: the backend validates the signature, the
// console only needs the claim to populate the X-Tenant-ID header.
package tenant

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmespath-community/go-jmespath"
)

// DefaultClaim is the claim path used when none is configured.
const DefaultClaim = "tenant_id"

// Resolver extracts a tenant identifier using a JMESPath claim expression.
type Resolver struct {
	claim string
}

var defaultResolver = &Resolver{claim: DefaultClaim}

// NewResolver compiles the claim path. An empty path selects DefaultClaim.
func NewResolver(claimPath string) (*Resolver, error) {
	claimPath = strings.TrimSpace(claimPath)
	if claimPath == "" {
		return defaultResolver, nil
	}
	if _, err := jmespath.Compile(claimPath); err != nil {
		return nil, err
	}
	return &Resolver{claim: claimPath}, nil
}

// Claim reports the configured claim path.
func (r *Resolver) Claim() string { return r.claim }

// DecodeTenantID reads the tenant_id claim of token. See Resolver.Resolve.
func DecodeTenantID(token string) (string, bool) {
	return defaultResolver.Resolve(token)
}

// Resolve returns the tenant claim of token and whether it was present.
// Numbers and true are formatted; malformed tokens, undecodable payloads and missing,
// empty, zero, false or structured claims all yield ("", false).
func (r *Resolver) Resolve(token string) (string, bool) {
	claims, ok := Claims(token)
	if !ok {
		return "", false
	}

	var v any
	if r == nil || r.claim == DefaultClaim {
		v = claims[DefaultClaim]
	} else {
		res, err := jmespath.Search(r.claim, claims)
		if err != nil {
			return "", false
		}
		v = res
	}

	return scalar(v)
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, t != ""
	case float64:
		if t == 0 {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		if !t {
			return "", false
		}
		return "true", true
	default:
		return "", false
	}
}

// Claims decodes the payload segment of a compact JWT without verifying it.
func Claims(token string) (map[string]any, bool) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 || parts[1] == "" {
		return nil, false
	}

	payload, err := jwt.NewParser(jwt.WithPaddingAllowed()).DecodeSegment(parts[1])
	if err != nil {
		return nil, false
	}

	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil || claims == nil {
		return nil, false
	}
	return claims, true
}
