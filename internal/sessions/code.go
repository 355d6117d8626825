package sessions

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// CodeLength is the fixed length of a join code.
	CodeLength = 6
)

var alphabetLen = big.NewInt(int64(len(codeAlphabet)))

// GenerateCode returns a 6-character join code over A-Z0-9, each position
// drawn independently and uniformly from a cryptographically strong source.
// Codes are not globally unique; the storage constraint plus the creation
// retry loop handle collisions.
func GenerateCode() (string, error) {
	buf := make([]byte, CodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
