package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keyfold/identity/pkg/idx"
	"github.com/keyfold/identity/pkg/tokenx"
)

func TestTokenIssuer_IssuePair(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	appID := idx.New()
	now := time.Now()
	perms := mustPermissions(t, "articles.read", "articles.write")

	pair, record, err := env.issuer.IssuePair(appID, perms, time.Time{}, time.Time{}, now)
	require.NoError(t, err)

	require.Equal(t, BearerTokenType, pair.TokenType)
	require.Equal(t, tokenx.AccessTokenTTL, pair.ExpiresIn)
	require.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	access, err := env.issuer.Parse(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, tokenx.KindAccess, access.Kind)
	require.Equal(t, appID, access.ApplicationID)
	require.Equal(t, []string{"articles.read", "articles.write"}, access.Permissions)
	require.WithinDuration(t, now.Add(tokenx.AccessTokenTTL), access.ExpiresAt, time.Second)

	refresh, err := env.issuer.Parse(pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, tokenx.KindRefresh, refresh.Kind)
	require.Equal(t, record.TokenID, refresh.ID)
	require.WithinDuration(t, record.ExpiresAt, refresh.ExpiresAt, time.Second)
	require.False(t, record.Used)
}

func TestTokenIssuer_ExplicitExpiry(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	now := time.Now()
	refreshExpiry := now.Add(72 * time.Hour)

	_, record, err := env.issuer.IssuePair(idx.New(), mustPermissions(t, "articles.read"),
		time.Time{}, refreshExpiry, now)
	require.NoError(t, err)
	require.WithinDuration(t, refreshExpiry, record.ExpiresAt, time.Second)
}

func TestTokenIssuer_ParseRejectsTampering(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	pair, _, err := env.issuer.IssuePair(idx.New(), mustPermissions(t, "articles.read"),
		time.Time{}, time.Time{}, time.Now())
	require.NoError(t, err)

	_, err = env.issuer.Parse(pair.AccessToken[:len(pair.AccessToken)-4] + "AAAA")
	require.Error(t, err)
}
