package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCipherRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	_, err := NewCipher(nil)
	require.ErrorIs(t, err, ErrEmptyKey)
}

func TestCipherRoundTrip(t *testing.T) {
	t.Parallel()

	c, err := NewCipher([]byte("test-key-material"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		plain string
	}{
		{"short", "abc"},
		{"empty", ""},
		{"block aligned", strings.Repeat("x", 32)},
		{"long", strings.Repeat("token-value-", 50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct := c.Encrypt([]byte(tt.plain))
			require.NotEmpty(t, ct)
			require.Zero(t, len(ct)%16)

			got, err := c.Decrypt(ct)
			require.NoError(t, err)
			require.Equal(t, tt.plain, string(got))
		})
	}
}

func TestCipherDeterministic(t *testing.T) {
	t.Parallel()

	c, err := NewCipher([]byte("test-key-material"))
	require.NoError(t, err)

	// Fixed IV: equal plaintext yields equal ciphertext, which makes
	// cipher-byte comparison a valid equality check.
	require.Equal(t, c.Encrypt([]byte("same")), c.Encrypt([]byte("same")))
	require.NotEqual(t, c.Encrypt([]byte("same")), c.Encrypt([]byte("other")))
}

func TestCipherDecryptRejectsMalformed(t *testing.T) {
	t.Parallel()

	c, err := NewCipher([]byte("test-key-material"))
	require.NoError(t, err)

	for _, size := range []int{1, 4, 15, 17, 33} {
		_, err := c.Decrypt(make([]byte, size))
		require.ErrorIs(t, err, ErrCiphertext, "size %d", size)
	}

	_, err = c.Decrypt(nil)
	require.ErrorIs(t, err, ErrCiphertext)
}

func TestSecretRoundTrip(t *testing.T) {
	t.Parallel()

	c, err := NewCipher([]byte("test-key-material"))
	require.NoError(t, err)

	secret, err := GenerateSecret()
	require.NoError(t, err)

	enc := c.EncryptSecret(secret)
	require.True(t, enc.Equal(c.EncryptSecret(secret)))

	got, err := c.DecryptSecret(enc)
	require.NoError(t, err)
	require.Equal(t, secret, got)

	other, err := GenerateSecret()
	require.NoError(t, err)
	require.False(t, enc.Equal(c.EncryptSecret(other)))
}
