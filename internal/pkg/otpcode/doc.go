// Package otpcode generates short-lived numeric passcodes for out-of-band
// delivery. Codes are random per request, not time- or counter-derived; the
// caller is responsible for hashing and expiring them.
package otpcode
