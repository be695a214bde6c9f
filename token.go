package sessionguard

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiryFromJWT extracts the exp claim from an access token and
// returns it in epoch milliseconds. The signature is NOT verified: the
// client holds no keys, and cryptographic validation is the backend's
// responsibility. The value is used only to schedule the expiry warning.
func TokenExpiryFromJWT(token string) (int64, error) {
	if token == "" {
		return 0, ErrTokenMalformed
	}

	claims := jwt.RegisteredClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
	if claims.ExpiresAt == nil {
		return 0, fmt.Errorf("%w: missing exp claim", ErrTokenMalformed)
	}

	return claims.ExpiresAt.Time.UnixMilli(), nil
}
