package otpcode

import (
	"crypto/rand"
	"math/big"
	"strconv"
)

const (
	codeMin  = 100000
	codeSpan = 900000
)

// Generator produces one-time passcodes.
type Generator interface {
	// Generate returns a fresh plaintext passcode.
	Generate() (string, error)
}

// Digits6 generates 6-digit numeric codes, uniformly distributed over
// [100000, 999999], from a cryptographically secure source.
type Digits6 struct{}

// NewDigits6 returns a Digits6 generator.
func NewDigits6() *Digits6 {
	return &Digits6{}
}

// Generate returns a fresh 6-digit code.
func (*Digits6) Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(codeMin+n.Int64(), 10), nil
}
