package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// Sizes for generated random values (bytes before encoding).
const (
	// SecretKeySize provides 256 bits of entropy for application secrets.
	SecretKeySize = 32
	// CodeSize provides 256 bits of entropy for authorization codes.
	CodeSize = 32
)

// SecretKey is an application credential. Only its encrypted form is ever
// persisted.
type SecretKey string

// Code is a plaintext authorization code. Only its fingerprint is ever
// persisted.
type Code string

// HashedCode is the one-way fingerprint of a Code, used for lookup and
// comparison. It is never reversible.
type HashedCode string

// GenerateSecret creates a cryptographically random application secret,
// rendered base64url without padding.
func GenerateSecret() (SecretKey, error) {
	s, err := randomString(SecretKeySize)
	if err != nil {
		return "", fmt.Errorf("cryptox: generate secret: %w", err)
	}
	return SecretKey(s), nil
}

// GenerateCode creates a cryptographically random authorization code,
// rendered base64url without padding.
func GenerateCode() (Code, error) {
	s, err := randomString(CodeSize)
	if err != nil {
		return "", fmt.Errorf("cryptox: generate code: %w", err)
	}
	return Code(s), nil
}

// FingerprintCode returns the deterministic SHA-256 fingerprint of a code.
// Verifying a candidate means re-hashing and comparing, never decrypting.
func FingerprintCode(code Code) HashedCode {
	sum := sha256.Sum256([]byte(code))
	return HashedCode(base64.RawURLEncoding.EncodeToString(sum[:]))
}

// Equal compares two secrets in constant time.
func (k SecretKey) Equal(other SecretKey) bool {
	return subtle.ConstantTimeCompare([]byte(k), []byte(other)) == 1
}

func randomString(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
