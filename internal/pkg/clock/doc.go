// Package clock abstracts wall-clock access behind a small interface so that
// time-dependent logic (OTP expiry, record timestamps) is testable.
package clock
