package opaque

import "testing"

// FuzzParse exercises opaque-value parsing with arbitrary strings.
// Goal: no panics; invalid inputs must return errors cleanly and a value
// that parses must hash deterministically.
func FuzzParse(f *testing.F) {
	f.Add("")
	f.Add("abc")
	f.Add("!!!not-base64!!!")
	f.Add("aGVsbG8=")

	if value, _, err := NewValue(); err == nil {
		f.Add(value)
	}

	f.Fuzz(func(t *testing.T, input string) {
		if err := Parse(input); err != nil {
			return
		}
		if Hash(input) != Hash(input) {
			t.Fatal("hash must be deterministic")
		}
	})
}
