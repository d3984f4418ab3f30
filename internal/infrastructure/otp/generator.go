package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	// CodeLength is the fixed width of a generated MFA code.
	CodeLength = 6

	// codeSpace is the number of possible codes (10^CodeLength).
	codeSpace = 1_000_000
)

// GenerateCode returns a uniformly distributed 6-digit numeric code,
// zero-padded ("000000"–"999999"). crypto/rand is used because the code
// is the only secret in the MFA exchange.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return "", fmt.Errorf("failed to generate MFA code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}

// IsValidFormat reports whether a submitted code has the expected shape.
func IsValidFormat(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
