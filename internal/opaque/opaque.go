// Package opaque generates and hashes the opaque refresh-credential values.
// A value is 32 bytes of crypto/rand output, base64url-encoded with no
// padding, and carries no embedded structure: leaking one reveals nothing
// about its subject. Only the SHA-256 digest of a value is ever persisted.
package opaque

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const valueSize = 32

// ErrInvalidValue is returned by Parse for strings that cannot be a
// credential value. It lets callers skip a storage round-trip for garbage
// input without revealing anything beyond "invalid".
var ErrInvalidValue = errors.New("invalid opaque value")

// NewValue returns a fresh credential value and the hash it is stored under.
func NewValue() (value, hash string, err error) {
	var raw [valueSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", "", err
	}
	value = base64.RawURLEncoding.EncodeToString(raw[:])
	return value, Hash(value), nil
}

// Hash maps a presented value to its storage key.
func Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// Parse checks the structural shape of a presented value.
func Parse(value string) error {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) != valueSize {
		return ErrInvalidValue
	}
	return nil
}
