package registry

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is what the client reads from an access token for logging.
// The token is never verified; the API is the authority on its validity.
type TokenClaims struct {
	Issuer    string
	ExpiresAt time.Time
	Scopes    []string
}

// ParseTokenClaims decodes the claims of a JWT access token without
// verifying its signature. It reports false if the token is not a JWT.
func ParseTokenClaims(token string) (TokenClaims, bool) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	unverified, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return TokenClaims{}, false
	}
	mc, ok := unverified.Claims.(jwt.MapClaims)
	if !ok {
		return TokenClaims{}, false
	}

	var claims TokenClaims
	claims.Issuer, _ = mc.GetIssuer()
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	switch scope := mc["scope"].(type) {
	case string:
		claims.Scopes = []string{scope}
	case []any:
		for _, s := range scope {
			if str, ok := s.(string); ok {
				claims.Scopes = append(claims.Scopes, str)
			}
		}
	}
	return claims, true
}
