package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keyfold/identity/pkg/idx"
	"github.com/keyfold/identity/pkg/tokenx"
)

func testInfo(kind tokenx.Kind, expiresAt time.Time) tokenx.Info {
	return tokenx.Info{
		ID:            idx.New(),
		ApplicationID: idx.New(),
		Kind:          kind,
		Permissions:   []string{"tabs.Add", "tabs.Remove"},
		ExpiresAt:     expiresAt,
	}
}

func TestNewAccessTokenRejectsRefreshContent(t *testing.T) {
	t.Parallel()

	_, err := NewAccessToken(testInfo(tokenx.KindRefresh, time.Now().Add(time.Hour)))
	require.ErrorIs(t, err, ErrRefreshTokenIDGiven)
}

func TestNewRefreshTokenRejectsAccessContent(t *testing.T) {
	t.Parallel()

	_, err := NewRefreshToken(testInfo(tokenx.KindAccess, time.Now().Add(time.Hour)), false)
	require.ErrorIs(t, err, ErrAccessTokenIDGiven)
}

func TestAccessTokenVerify(t *testing.T) {
	t.Parallel()

	now := time.Now()

	live, err := NewAccessToken(testInfo(tokenx.KindAccess, now.Add(time.Hour)))
	require.NoError(t, err)
	require.NoError(t, live.Verify(now))

	expired, err := NewAccessToken(testInfo(tokenx.KindAccess, now.Add(-time.Minute)))
	require.NoError(t, err)
	require.ErrorIs(t, expired.Verify(now), ErrTokenExpired)
}

func TestRefreshTokenVerifyOrder(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("live and unused verifies", func(t *testing.T) {
		rt, err := NewRefreshToken(testInfo(tokenx.KindRefresh, now.Add(time.Hour)), false)
		require.NoError(t, err)
		require.NoError(t, rt.Verify(now))
	})

	t.Run("used fails", func(t *testing.T) {
		rt, err := NewRefreshToken(testInfo(tokenx.KindRefresh, now.Add(time.Hour)), true)
		require.NoError(t, err)
		require.ErrorIs(t, rt.Verify(now), ErrTokenUsed)
	})

	t.Run("expiry wins over used", func(t *testing.T) {
		rt, err := NewRefreshToken(testInfo(tokenx.KindRefresh, now.Add(-time.Minute)), true)
		require.NoError(t, err)
		require.ErrorIs(t, rt.Verify(now), ErrTokenExpired)
	})
}

func TestRefreshTokenUse(t *testing.T) {
	t.Parallel()

	now := time.Now()

	t.Run("second use fails", func(t *testing.T) {
		rt, err := NewRefreshToken(testInfo(tokenx.KindRefresh, now.Add(time.Hour)), false)
		require.NoError(t, err)

		require.NoError(t, rt.Use(now))
		require.True(t, rt.Used)
		require.ErrorIs(t, rt.Use(now), ErrTokenUsedBefore)
	})

	t.Run("expired fails even if unused", func(t *testing.T) {
		rt, err := NewRefreshToken(testInfo(tokenx.KindRefresh, now.Add(-time.Minute)), false)
		require.NoError(t, err)

		require.ErrorIs(t, rt.Use(now), ErrTokenExpired)
		require.False(t, rt.Used)
	})
}

func TestTokenInfoRoundTrip(t *testing.T) {
	t.Parallel()

	info := testInfo(tokenx.KindRefresh, time.Now().Add(time.Hour))
	rt, err := NewRefreshToken(info, false)
	require.NoError(t, err)

	require.Equal(t, info, rt.Info())
}

func TestTokenFromInfoRejectsMalformedPermissions(t *testing.T) {
	t.Parallel()

	info := testInfo(tokenx.KindAccess, time.Now().Add(time.Hour))
	info.Permissions = []string{"nodot"}

	_, err := NewAccessToken(info)
	require.ErrorIs(t, err, ErrMalformedPermission)
}

func TestTokenPairMarshalsExpiresInSeconds(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(TokenPair{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		ExpiresIn:    24 * time.Hour,
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, float64(86400), got["expires_in"])
	require.Equal(t, "access", got["access_token"])
	require.Equal(t, "Bearer", got["token_type"])
}
