package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keyfold/identity/internal/identity/domain"
	"github.com/keyfold/identity/internal/identity/store"
	"github.com/keyfold/identity/internal/identity/store/drivers/sqlite"
	"github.com/keyfold/identity/pkg/cryptox"
	"github.com/keyfold/identity/pkg/tokenx"
)

// testEnv wires real collaborators: an in-memory sqlite store, a signing
// codec, an AES envelope and a secret cipher with fixed test keys.
type testEnv struct {
	store   *sqlite.Store
	issuer  *TokenIssuer
	secrets *cryptox.Cipher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	name := strings.ReplaceAll(t.Name(), "/", "_")
	st, err := sqlite.NewStore(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	codec, err := tokenx.NewCodec([]byte("test signing key"))
	require.NoError(t, err)
	alg, err := tokenx.NewAESAlgorithm([]byte("test token encryption key"))
	require.NoError(t, err)
	registry, err := tokenx.NewRegistry(alg)
	require.NoError(t, err)
	envelope, err := tokenx.NewEnvelope(registry, tokenx.AlgorithmAES)
	require.NoError(t, err)

	secrets, err := cryptox.NewCipher([]byte("test secret encryption key"))
	require.NoError(t, err)

	return &testEnv{
		store:   st,
		issuer:  &TokenIssuer{Codec: codec, Envelope: envelope},
		secrets: secrets,
	}
}

func (e *testEnv) authorization() *AuthorizationService {
	return &AuthorizationService{
		Store:   e.store,
		Tokens:  e.issuer,
		Secrets: e.secrets,
	}
}

func (e *testEnv) createUser(t *testing.T, email string, permissions ...string) domain.User {
	t.Helper()

	hash, err := cryptox.HashPassword("hunter2hunter2")
	require.NoError(t, err)
	user, err := domain.NewUser(email, hash, time.Now())
	require.NoError(t, err)

	for _, p := range permissions {
		perm, err := domain.ParsePermission(p)
		require.NoError(t, err)
		require.NoError(t, user.ObtainPermission(perm))
	}
	user.ClearEvents()

	require.NoError(t, e.store.Users().CreateUser(context.Background(), user))
	return user
}

func (e *testEnv) createApplication(t *testing.T, owner domain.User) (domain.Application, cryptox.SecretKey) {
	t.Helper()

	secret, err := cryptox.GenerateSecret()
	require.NoError(t, err)

	app := domain.NewApplication(owner.ID, "test app", e.secrets.EncryptSecret(secret),
		"https://example.com", "https://example.com/callback", time.Now())
	require.NoError(t, e.store.Applications().CreateApplication(context.Background(), app))
	return app, secret
}

func (e *testEnv) createRole(t *testing.T, name string, permissions ...string) domain.Role {
	t.Helper()

	perms := make([]domain.Permission, 0, len(permissions))
	for _, p := range permissions {
		perm, err := domain.ParsePermission(p)
		require.NoError(t, err)
		perms = append(perms, perm)
	}

	role := domain.NewRole(name, "", perms, time.Now())
	require.NoError(t, e.store.Roles().CreateRole(context.Background(), role))
	return role
}

func mustPermissions(t *testing.T, values ...string) []domain.Permission {
	t.Helper()

	perms, err := domain.ParsePermissions(values)
	require.NoError(t, err)
	return perms
}

// brokenRefreshStore makes every refresh-token insert inside a transaction
// fail, to prove the surrounding exchange rolls back as a unit.
type brokenRefreshStore struct {
	store.Store
}

func (b *brokenRefreshStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return b.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(&brokenRefreshTx{storeTx: tx})
	})
}

// storeTx aliases store.Tx so it can be embedded without the field name
// shadowing the Tx method required by the store.Tx interface.
type storeTx = store.Tx

type brokenRefreshTx struct {
	storeTx
}

func (b *brokenRefreshTx) RefreshTokens() store.RefreshTokens {
	return &brokenRefreshRepo{RefreshTokens: b.storeTx.RefreshTokens()}
}

type brokenRefreshRepo struct {
	store.RefreshTokens
}

func (b *brokenRefreshRepo) CreateRefreshToken(ctx context.Context, _ domain.StoredRefreshToken) error {
	return fmt.Errorf("refresh token insert failed")
}
