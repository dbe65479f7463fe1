package tokenx

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/keyfold/identity/pkg/idx"
)

var testSigningKey = []byte("codec-test-signing-key")

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec(testSigningKey)
	require.NoError(t, err)
	return c
}

func TestNewCodecRejectsEmptyKey(t *testing.T) {
	t.Parallel()

	_, err := NewCodec(nil)
	require.Error(t, err)
}

func TestCodecRoundTrip(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	info := Info{
		ID:            idx.New(),
		ApplicationID: idx.New(),
		Kind:          KindAccess,
		Permissions:   []string{"tabs.Add", "tabs.Remove"},
		ExpiresAt:     time.Now().Add(time.Hour).Truncate(time.Second),
	}

	encoded, err := codec.Encode(info)
	require.NoError(t, err)
	require.NotEmpty(t, encoded)

	decoded, err := codec.Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, info.ID, decoded.ID)
	require.Equal(t, info.ApplicationID, decoded.ApplicationID)
	require.Equal(t, info.Kind, decoded.Kind)
	require.Equal(t, info.Permissions, decoded.Permissions)
	require.WithinDuration(t, info.ExpiresAt, decoded.ExpiresAt, time.Second)
}

func TestCodecDeterministicForFullySpecifiedInfo(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	info := Info{
		ID:            idx.New(),
		ApplicationID: idx.New(),
		Kind:          KindRefresh,
		Permissions:   []string{"ledger.Read"},
		ExpiresAt:     time.Now().Add(time.Hour).Truncate(time.Second),
	}

	first, err := codec.Encode(info)
	require.NoError(t, err)
	second, err := codec.Encode(info)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestCodecFreshIDWhenOmitted(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	info := Info{
		ApplicationID: idx.New(),
		Kind:          KindAccess,
		Permissions:   []string{"tabs.Add"},
		ExpiresAt:     time.Now().Add(time.Hour),
	}

	first, err := codec.Encode(info)
	require.NoError(t, err)
	second, err := codec.Encode(info)
	require.NoError(t, err)
	require.NotEqual(t, first, second, "omitted id must be randomly unique per encoding")

	a, err := codec.Decode(first)
	require.NoError(t, err)
	b, err := codec.Decode(second)
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
}

func TestCodecDerivesDefaultExpiry(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	tests := []struct {
		name string
		kind Kind
		ttl  time.Duration
	}{
		{"access defaults to one day", KindAccess, AccessTokenTTL},
		{"refresh defaults to one year", KindRefresh, RefreshTokenTTL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := codec.Encode(Info{
				ApplicationID: idx.New(),
				Kind:          tt.kind,
				Permissions:   []string{"tabs.Add"},
			})
			require.NoError(t, err)

			decoded, err := codec.Decode(encoded)
			require.NoError(t, err)
			require.WithinDuration(t, time.Now().Add(tt.ttl), decoded.ExpiresAt, time.Second)
		})
	}
}

func TestCodecEncodeRejectsBadInput(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	_, err := codec.Encode(Info{Kind: KindAccess, Permissions: []string{"tabs.Add"}})
	require.Error(t, err, "empty application id")

	_, err = codec.Encode(Info{ApplicationID: idx.New(), Kind: Kind(9)})
	require.Error(t, err, "unknown kind")

	_, err = codec.Encode(Info{ApplicationID: idx.New(), Kind: KindAccess, Permissions: []string{"nodot"}})
	require.Error(t, err, "malformed permission")

	// Decode rejects an empty permissions claim, so Encode must never
	// produce a token it cannot read back.
	_, err = codec.Encode(Info{ApplicationID: idx.New(), Kind: KindAccess})
	require.Error(t, err, "empty permission set")

	_, err = codec.Encode(Info{ApplicationID: idx.New(), Kind: KindAccess, Permissions: []string{}})
	require.Error(t, err, "empty permission slice")
}

func TestCodecDecodeRejectsInvalidTokens(t *testing.T) {
	t.Parallel()

	codec := newTestCodec(t)

	valid, err := codec.Encode(Info{
		ApplicationID: idx.New(),
		Kind:          KindAccess,
		Permissions:   []string{"tabs.Add"},
	})
	require.NoError(t, err)

	sign := func(claims jwt.Claims, key []byte) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	base := func() wireClaims {
		return wireClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        idx.New().String(),
				Subject:   idx.New().String(),
				Issuer:    Issuer,
				Audience:  jwt.ClaimStrings{Audience},
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
			TokenType:   int(KindAccess),
			Permissions: "tabs.Add",
		}
	}

	tests := []struct {
		name  string
		value string
	}{
		{"garbage", "not-a-token"},
		{"empty", ""},
		{"wrong signing key", sign(base(), []byte("other-key"))},
		{"tampered signature", valid + "x"},
		{"wrong issuer", func() string {
			c := base()
			c.Issuer = "someone-else"
			return sign(c, testSigningKey)
		}()},
		{"wrong audience", func() string {
			c := base()
			c.Audience = jwt.ClaimStrings{"Machines"}
			return sign(c, testSigningKey)
		}()},
		{"missing jti", func() string {
			c := base()
			c.ID = ""
			return sign(c, testSigningKey)
		}()},
		{"malformed subject", func() string {
			c := base()
			c.Subject = "not-an-id"
			return sign(c, testSigningKey)
		}()},
		{"missing expiry", func() string {
			c := base()
			c.ExpiresAt = nil
			return sign(c, testSigningKey)
		}()},
		{"unknown token type", func() string {
			c := base()
			c.TokenType = 42
			return sign(c, testSigningKey)
		}()},
		{"missing permissions", func() string {
			c := base()
			c.Permissions = ""
			return sign(c, testSigningKey)
		}()},
		{"one bad permission invalidates list", func() string {
			c := base()
			c.Permissions = "tabs.Add malformed tabs.Remove"
			return sign(c, testSigningKey)
		}()},
		{"empty permission entry", func() string {
			c := base()
			c.Permissions = "tabs.Add  tabs.Remove"
			return sign(c, testSigningKey)
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := codec.Decode(tt.value)
			require.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

// Expiry is a state concern, not a structural one: a token past its exp
// still decodes, and callers see the expiry through Info.
func TestCodec_DecodeExpiredToken(t *testing.T) {
	t.Parallel()

	codec, err := NewCodec(testSigningKey)
	require.NoError(t, err)

	past := time.Now().Add(-time.Hour).Truncate(time.Second)
	encoded, err := codec.Encode(Info{
		ApplicationID: idx.New(),
		Kind:          KindRefresh,
		Permissions:   []string{"tabs.Add"},
		ExpiresAt:     past,
	})
	require.NoError(t, err)

	info, err := codec.Decode(encoded)
	require.NoError(t, err)
	require.True(t, info.Expired(time.Now()))
	require.WithinDuration(t, past, info.ExpiresAt, time.Second)
}

func TestValidPermission(t *testing.T) {
	t.Parallel()

	valid := []string{"tabs.Add", "r1.Remove", "a.b"}
	for _, p := range valid {
		require.True(t, ValidPermission(p), p)
	}

	invalid := []string{"", "nodot", ".Add", "tabs.", "tabs.Add.Extra", "ta bs.Add"}
	for _, p := range invalid {
		require.False(t, ValidPermission(p), p)
	}
}
