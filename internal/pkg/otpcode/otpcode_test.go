package otpcode

import (
	"strconv"
	"testing"
)

func TestDigits6Range(t *testing.T) {
	gen := NewDigits6()

	for range 1000 {
		code, err := gen.Generate()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}

		if len(code) != 6 {
			t.Fatalf("code %q is not 6 digits", code)
		}

		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code %q is not numeric: %v", code, err)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code %d outside [100000, 999999]", n)
		}
	}
}
