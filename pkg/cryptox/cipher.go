package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"errors"
	"fmt"
)

var (
	// ErrEmptyKey reports an empty cipher key.
	ErrEmptyKey = errors.New("cryptox: cipher key can't be empty")
	// ErrCiphertext reports ciphertext that cannot be decrypted.
	ErrCiphertext = errors.New("cryptox: malformed ciphertext")
)

// EncryptedSecretKey is the persisted form of a SecretKey. Because the
// cipher is deterministic, two encrypted keys compare equal exactly when
// the underlying secrets do.
type EncryptedSecretKey []byte

// Equal compares cipher bytes directly, without decryption.
func (e EncryptedSecretKey) Equal(other EncryptedSecretKey) bool {
	return bytes.Equal(e, other)
}

// Cipher is a deterministic AES-256-CBC cipher with PKCS#7 padding. The IV
// is derived from the key, so encrypting the same plaintext twice yields
// identical ciphertext. That property is load-bearing: stored secrets and
// token envelopes are compared by cipher bytes.
type Cipher struct {
	block cipher.Block
	iv    []byte
}

// NewCipher derives a 32-byte AES key and a fixed IV from arbitrary key
// material.
func NewCipher(keyMaterial []byte) (*Cipher, error) {
	if len(keyMaterial) == 0 {
		return nil, ErrEmptyKey
	}

	key := sha256.Sum256(keyMaterial)
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("cryptox: create cipher: %w", err)
	}

	ivSeed := sha256.Sum256(append(key[:], []byte("identity.cipher.iv")...))

	return &Cipher{
		block: block,
		iv:    ivSeed[:aes.BlockSize],
	}, nil
}

// Encrypt encrypts plain deterministically. Output length is always a
// multiple of the AES block size.
func (c *Cipher) Encrypt(plain []byte) []byte {
	padded := pad(plain, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)
	return out
}

// Decrypt is the exact inverse of Encrypt.
func (c *Cipher) Decrypt(ct []byte) ([]byte, error) {
	if len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return nil, ErrCiphertext
	}

	out := make([]byte, len(ct))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, ct)
	return unpad(out, aes.BlockSize)
}

// EncryptSecret envelope-encrypts an application secret for storage.
func (c *Cipher) EncryptSecret(secret SecretKey) EncryptedSecretKey {
	return EncryptedSecretKey(c.Encrypt([]byte(secret)))
}

// DecryptSecret recovers the plaintext secret.
func (c *Cipher) DecryptSecret(enc EncryptedSecretKey) (SecretKey, error) {
	plain, err := c.Decrypt(enc)
	if err != nil {
		return "", err
	}
	return SecretKey(plain), nil
}

func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	out := make([]byte, len(data), len(data)+n)
	copy(out, data)
	return append(out, bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrCiphertext
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrCiphertext
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrCiphertext
		}
	}
	return data[:len(data)-n], nil
}
