package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	verificationCodeMin  = 100000
	verificationCodeSpan = 900000
)

// GenerateNumericCode returns a uniformly random 6-digit code in [100000, 999999].
func GenerateNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(verificationCodeSpan))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", verificationCodeMin+n.Int64()), nil
}
