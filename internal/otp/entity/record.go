package entity

import "time"

// OTPRecord is the stored state for one phone key. At most one record is live
// per key; a new send request overwrites any prior record.
type OTPRecord struct {
	CodeHash  string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired reports whether the record is past its validity window.
func (r OTPRecord) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Account is the identity-store view of a phone-derived account.
type Account struct {
	ID        int64
	Email     string
	Phone     string
	Password  string // hashed
	UpdatedAt time.Time
}
