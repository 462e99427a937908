package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	codeAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLength   = 4
)

// GenerateOrderCode returns a 4-character uppercase base36 pickup code drawn
// uniformly from crypto/rand. The keyspace is small (36^4) so callers must
// retry inserts on unique violations.
func GenerateOrderCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generating order code: %w", err)
		}
		code[i] = codeAlphabet[n.Int64()]
	}
	return string(code), nil
}
