package validator

import (
	"errors"
	"testing"
)

type phoneInput struct {
	Phone string `validate:"required,phone"`
}

func TestPhoneRule(t *testing.T) {
	v, err := NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error: %v", err)
	}

	tests := []struct {
		name  string
		phone string
		valid bool
	}{
		{"bare ten digits", "9876543210", true},
		{"formatted with country code", "+91 98765-43210", true},
		{"dotted separators", "987.654.3210", true},
		{"nine digits padded by separators", "12-34-56-78-9", false},
		{"too short", "98765", false},
		{"letters", "98765abcde", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(phoneInput{Phone: tt.phone})
			if tt.valid && err != nil {
				t.Fatalf("Validate(%q) = %v, want pass", tt.phone, err)
			}
			if !tt.valid && err == nil {
				t.Fatalf("Validate(%q) passed, want failure", tt.phone)
			}
		})
	}
}

func TestValidationErrorFields(t *testing.T) {
	v, err := NewV10Validator()
	if err != nil {
		t.Fatalf("NewV10Validator() error: %v", err)
	}

	err = v.Validate(phoneInput{Phone: "12-34-56-78-9"})

	var verr V10ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want V10ValidationError", err)
	}
	if _, ok := verr.Values()["phone"]; !ok {
		t.Fatalf("error fields = %v, want snake_case phone key", verr.Values())
	}
}
