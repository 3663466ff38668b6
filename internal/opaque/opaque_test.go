package opaque

import (
	"errors"
	"testing"
)

func TestNewValueShapeAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 64; i++ {
		value, hash, err := NewValue()
		if err != nil {
			t.Fatalf("NewValue failed: %v", err)
		}
		if err := Parse(value); err != nil {
			t.Fatalf("generated value failed Parse: %v", err)
		}
		if hash != Hash(value) {
			t.Fatal("returned hash does not match Hash(value)")
		}
		if hash == value {
			t.Fatal("hash must differ from the value")
		}
		if seen[value] {
			t.Fatal("duplicate opaque value generated")
		}
		seen[value] = true
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "short", "not base64!!!", Hash("x") + "extra"} {
		if err := Parse(input); !errors.Is(err, ErrInvalidValue) {
			t.Fatalf("input %q: expected ErrInvalidValue, got %v", input, err)
		}
	}
}
