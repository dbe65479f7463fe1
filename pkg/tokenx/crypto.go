package tokenx

import (
	"crypto/aes"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/keyfold/identity/pkg/cryptox"
)

// Algorithm version symbols. The version byte travels with every encrypted
// token value so algorithms can rotate without breaking issued tokens.
const AlgorithmAES byte = 1

var (
	// ErrEmptyValue reports an empty encrypted token value.
	ErrEmptyValue = errors.New("Encrypted token value can't be empty.")
	// ErrWrongValue reports an encrypted token value that is structurally
	// wrong: bad length, unknown version or undecryptable bytes.
	ErrWrongValue = errors.New("Wrong encrypted token value given.")
)

// Algorithm is one concrete token encryption scheme. Implementations are
// deterministic: the same plaintext always yields the same ciphertext, so
// encrypted values compare for equality without decryption.
type Algorithm interface {
	Version() byte
	Encrypt(plain []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
	Validate(ciphertext []byte) error
}

// aesAlgorithm is version 1: deterministic AES-256-CBC.
type aesAlgorithm struct {
	cipher *cryptox.Cipher
}

// NewAESAlgorithm builds the version-1 algorithm from raw key material.
func NewAESAlgorithm(keyMaterial []byte) (Algorithm, error) {
	c, err := cryptox.NewCipher(keyMaterial)
	if err != nil {
		return nil, err
	}
	return &aesAlgorithm{cipher: c}, nil
}

func (a *aesAlgorithm) Version() byte { return AlgorithmAES }

func (a *aesAlgorithm) Encrypt(plain []byte) ([]byte, error) {
	if len(plain) == 0 {
		return nil, ErrEmptyValue
	}
	return a.cipher.Encrypt(plain), nil
}

func (a *aesAlgorithm) Decrypt(ciphertext []byte) ([]byte, error) {
	if err := a.Validate(ciphertext); err != nil {
		return nil, err
	}
	plain, err := a.cipher.Decrypt(ciphertext)
	if err != nil {
		return nil, ErrWrongValue
	}
	return plain, nil
}

func (a *aesAlgorithm) Validate(ciphertext []byte) error {
	if len(ciphertext) == 0 {
		return ErrEmptyValue
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return ErrWrongValue
	}
	return nil
}

// Registry maps algorithm version bytes to concrete algorithms. Lookup is
// an explicit map, never reflection.
type Registry struct {
	algorithms map[byte]Algorithm
}

// NewRegistry builds a registry. Registering two algorithms under one
// version is a programming error.
func NewRegistry(algs ...Algorithm) (*Registry, error) {
	r := &Registry{algorithms: make(map[byte]Algorithm, len(algs))}
	for _, alg := range algs {
		if _, dup := r.algorithms[alg.Version()]; dup {
			return nil, fmt.Errorf("tokenx: duplicate algorithm version %d", alg.Version())
		}
		r.algorithms[alg.Version()] = alg
	}
	return r, nil
}

// Algorithm resolves a version byte. Unknown versions are indistinguishable
// from corrupt values to callers.
func (r *Registry) Algorithm(version byte) (Algorithm, error) {
	alg, ok := r.algorithms[version]
	if !ok {
		return nil, ErrWrongValue
	}
	return alg, nil
}

// EncryptedTokenValue is an encrypted token envelope: a version byte plus
// ciphertext. The wire form is base64url(version || ciphertext).
type EncryptedTokenValue struct {
	Version byte
	Bytes   []byte
}

func (v EncryptedTokenValue) String() string {
	buf := make([]byte, 0, 1+len(v.Bytes))
	buf = append(buf, v.Version)
	buf = append(buf, v.Bytes...)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// ParseEncryptedTokenValue decodes the wire form. It validates only the
// envelope shape; ciphertext validity is the algorithm's concern.
func ParseEncryptedTokenValue(s string) (EncryptedTokenValue, error) {
	if s == "" {
		return EncryptedTokenValue{}, ErrEmptyValue
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return EncryptedTokenValue{}, ErrWrongValue
	}
	if len(raw) < 2 {
		return EncryptedTokenValue{}, ErrEmptyValue
	}
	return EncryptedTokenValue{Version: raw[0], Bytes: raw[1:]}, nil
}

// Envelope seals encoded token strings with the active algorithm and opens
// values sealed by any registered algorithm version.
type Envelope struct {
	registry *Registry
	active   Algorithm
}

// NewEnvelope selects the active sealing algorithm by version.
func NewEnvelope(registry *Registry, activeVersion byte) (*Envelope, error) {
	alg, err := registry.Algorithm(activeVersion)
	if err != nil {
		return nil, fmt.Errorf("tokenx: no algorithm registered for version %d", activeVersion)
	}
	return &Envelope{registry: registry, active: alg}, nil
}

// Seal encrypts an encoded token string.
func (e *Envelope) Seal(encoded string) (EncryptedTokenValue, error) {
	ct, err := e.active.Encrypt([]byte(encoded))
	if err != nil {
		return EncryptedTokenValue{}, err
	}
	return EncryptedTokenValue{Version: e.active.Version(), Bytes: ct}, nil
}

// Open decrypts a sealed value, dispatching on its version byte.
func (e *Envelope) Open(value EncryptedTokenValue) (string, error) {
	alg, err := e.registry.Algorithm(value.Version)
	if err != nil {
		return "", err
	}
	if err := alg.Validate(value.Bytes); err != nil {
		return "", err
	}
	plain, err := alg.Decrypt(value.Bytes)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// OpenString parses the wire form and opens it.
func (e *Envelope) OpenString(s string) (string, error) {
	value, err := ParseEncryptedTokenValue(s)
	if err != nil {
		return "", err
	}
	return e.Open(value)
}
