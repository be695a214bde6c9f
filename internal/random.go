package internal

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// NewCode generates a numeric one-time code of the given length using
// crypto/rand. It exists for reference providers and test fixtures; real
// codes are issued by the backend identity provider.
func NewCode(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid code digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	code := b.String()
	if len(code) != digits {
		return "", fmt.Errorf("invalid code generation length")
	}
	return code, nil
}
