package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
)

// LoadKeyMaterial resolves key material for a named purpose, trying in
// order:
//
//  1. the file at path (if non-empty),
//  2. the environment variable envVar (if non-empty),
//  3. a freshly generated value, persisted to path when one was given so
//     the key survives restarts.
//
// The returned bytes are raw key material; callers derive the actual key
// (see NewCipher).
func LoadKeyMaterial(path, envVar string) ([]byte, error) {
	if path != "" {
		path = filepath.Clean(path)

		data, err := os.ReadFile(path)
		if err == nil {
			return data, nil
		}
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("cryptox: read key file: %w", err)
		}

		generated, err := generateKeyMaterial()
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("cryptox: create key dir: %w", err)
		}
		if err := os.WriteFile(path, generated, 0o600); err != nil {
			return nil, fmt.Errorf("cryptox: write key file: %w", err)
		}
		return generated, nil
	}

	if envVar != "" {
		if v := os.Getenv(envVar); v != "" {
			return []byte(v), nil
		}
	}

	// Ephemeral fallback for development. Tokens and stored secrets will
	// not survive a restart with this key.
	return generateKeyMaterial()
}

func generateKeyMaterial() ([]byte, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("cryptox: generate key material: %w", err)
	}
	out := make([]byte, base64.RawURLEncoding.EncodedLen(len(buf)))
	base64.RawURLEncoding.Encode(out, buf)
	return out, nil
}
