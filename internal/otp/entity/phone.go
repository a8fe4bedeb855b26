package entity

import "errors"

// ErrPhoneInvalid indicates the raw input carries no usable digits.
var ErrPhoneInvalid = errors.New("phone number has no digits")

const phoneKeyLength = 10

// NormalizePhone reduces a raw phone string to its storage key: digits only,
// keeping the last 10 significant digits. Country-code prefixes and separators
// are discarded, so "+91 98765-43210" and "9876543210" produce the same key.
// Normalization is idempotent.
func NormalizePhone(raw string) (string, error) {
	digits := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] >= '0' && raw[i] <= '9' {
			digits = append(digits, raw[i])
		}
	}

	if len(digits) == 0 {
		return "", ErrPhoneInvalid
	}

	if len(digits) > phoneKeyLength {
		digits = digits[len(digits)-phoneKeyLength:]
	}

	return string(digits), nil
}

// SyntheticEmail derives the identity-store address for a phone key.
func SyntheticEmail(phoneKey, domain string) string {
	return phoneKey + "@" + domain
}
