// Package validator wraps go-playground/validator v10 behind a small
// interface, with English translations and custom rules for phone numbers,
// one-time passcodes, and passwords.
package validator
