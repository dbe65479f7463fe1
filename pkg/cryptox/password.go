// Package cryptox holds the crypto primitives the identity service relies
// on: salted password hashing, random secret and code generation, one-way
// code fingerprints and a deterministic AES cipher for stored secrets and
// token envelopes.
package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2 parameters. Changing these invalidates every stored hash, so they
// are fixed for the lifetime of the scheme.
const (
	saltLength           = 16
	keyLength            = 32
	iterations           = 210_000
	HashedPasswordLength = saltLength + keyLength
)

var (
	// ErrWrongHashedPassword reports hashed bytes of the wrong shape.
	ErrWrongHashedPassword = errors.New("Wrong hashed password given.")
)

// HashedPassword is the stored form of a password: a random 16-byte salt
// followed by the 32-byte PBKDF2-SHA256 derivation.
type HashedPassword []byte

// HashPassword derives a HashedPassword with a freshly generated salt.
// Hashing the same password twice yields different bytes; both verify.
func HashPassword(password string) (HashedPassword, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("cryptox: generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, iterations, keyLength, sha256.New)

	out := make([]byte, 0, HashedPasswordLength)
	out = append(out, salt...)
	out = append(out, key...)
	return out, nil
}

// ParseHashedPassword validates raw bytes loaded from storage.
func ParseHashedPassword(raw []byte) (HashedPassword, error) {
	if len(raw) != HashedPasswordLength {
		return nil, ErrWrongHashedPassword
	}
	out := make(HashedPassword, HashedPasswordLength)
	copy(out, raw)
	return out, nil
}

// Verify re-derives the candidate with the embedded salt and compares in
// constant time. A malformed hash never verifies.
func (h HashedPassword) Verify(candidate string) bool {
	if len(h) != HashedPasswordLength {
		return false
	}

	salt := h[:saltLength]
	expected := h[saltLength:]

	computed := pbkdf2.Key([]byte(candidate), salt, iterations, keyLength, sha256.New)
	return subtle.ConstantTimeCompare(computed, expected) == 1
}
