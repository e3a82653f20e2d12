package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PeekClaims decodes the registered claims of a provider-issued access token
// without verifying its signature. Verification is the provider's job; this is
// only used to skip a round-trip for tokens that are already expired.
func PeekClaims(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// expired reports whether token is a JWT whose exp claim is in the past.
// Tokens that are not JWTs are treated as opaque and left to the provider.
func expired(token string, now time.Time) bool {
	claims, err := PeekClaims(token)
	if err != nil || claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.Time.After(now)
}
