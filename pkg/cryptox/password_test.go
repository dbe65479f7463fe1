package cryptox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"empty password", ""},
		{"unicode password", "пароль🔒密码"},
		{"whitespace password", "   spaces   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			require.NoError(t, err)
			require.Len(t, []byte(hash), HashedPasswordLength)
			require.True(t, hash.Verify(tt.password))
			require.False(t, hash.Verify(tt.password+"x"))
		})
	}
}

func TestHashPasswordSalted(t *testing.T) {
	t.Parallel()

	const password = "samepassword"

	first, err := HashPassword(password)
	require.NoError(t, err)
	second, err := HashPassword(password)
	require.NoError(t, err)

	// Fresh salt per call: raw bytes differ, yet both verify.
	require.NotEqual(t, []byte(first), []byte(second))
	require.True(t, first.Verify(password))
	require.True(t, second.Verify(password))
}

func TestParseHashedPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("secret")
	require.NoError(t, err)

	parsed, err := ParseHashedPassword(hash)
	require.NoError(t, err)
	require.True(t, parsed.Verify("secret"))

	for _, size := range []int{0, 1, 47, 49, 96} {
		_, err := ParseHashedPassword(make([]byte, size))
		require.ErrorIs(t, err, ErrWrongHashedPassword, "size %d", size)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	t.Parallel()

	require.False(t, HashedPassword(nil).Verify("anything"))
	require.False(t, HashedPassword([]byte("short")).Verify("anything"))
}
