package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// CodeLength is the number of digits in a generated passcode.
const CodeLength = 6

var codeSpace = big.NewInt(1_000_000)

// GenerateCode returns a 6-digit numeric passcode sampled uniformly from
// 000000-999999. Leading zeros are preserved. Codes carry no uniqueness
// guarantee; the store resolves collisions at consume time.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpace)
	if err != nil {
		return "", fmt.Errorf("otp: generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// IsWellFormed reports whether the value is exactly six ASCII digits after
// trimming surrounding whitespace.
func IsWellFormed(code string) bool {
	code = strings.TrimSpace(code)
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
