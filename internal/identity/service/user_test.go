package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/keyfold/identity/internal/identity/domain"
	"github.com/keyfold/identity/internal/identity/store"
	"github.com/keyfold/identity/pkg/idx"
)

func TestUserService_Register(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	svc := &UserService{Store: env.store}

	user, err := svc.Register(ctx, "alice@example.com", "hunter2hunter2")
	require.NoError(t, err)
	require.Empty(t, user.PendingEvents(), "events drained after persist")

	stored, err := env.store.Users().GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, user.ID, stored.ID)
	require.True(t, stored.Password.Verify("hunter2hunter2"))

	_, err = svc.Register(ctx, "alice@example.com", "another password")
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestUserService_Grants(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	svc := &UserService{Store: env.store}

	user := env.createUser(t, "alice@example.com")
	role := env.createRole(t, "editors", "articles.write")
	read := mustPermissions(t, "articles.read")[0]

	t.Run("obtain then revoke permission", func(t *testing.T) {
		require.NoError(t, svc.ObtainPermission(ctx, user.ID, read))

		stored, err := env.store.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, stored.HasDirectPermission(read))

		require.ErrorIs(t, svc.ObtainPermission(ctx, user.ID, read), domain.ErrPermissionAlreadyGranted)

		require.NoError(t, svc.RevokePermission(ctx, user.ID, read))
		require.ErrorIs(t, svc.RevokePermission(ctx, user.ID, read), domain.ErrPermissionNotGranted)
	})

	t.Run("assume then revoke role", func(t *testing.T) {
		require.NoError(t, svc.AssumeRole(ctx, user.ID, role.ID))

		stored, err := env.store.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.True(t, stored.HasRole(role.ID))

		require.ErrorIs(t, svc.AssumeRole(ctx, user.ID, role.ID), domain.ErrRoleAlreadyAssumed)

		require.NoError(t, svc.RevokeRole(ctx, user.ID, role.ID))
		require.ErrorIs(t, svc.RevokeRole(ctx, user.ID, role.ID), domain.ErrRoleNotAssumed)
	})

	t.Run("assuming a nonexistent role fails", func(t *testing.T) {
		require.ErrorIs(t, svc.AssumeRole(ctx, user.ID, idx.New()), store.ErrNotFound)
	})

	t.Run("unknown user", func(t *testing.T) {
		var notFound UserNotFoundError
		require.ErrorAs(t, svc.ObtainPermission(ctx, idx.New(), read), &notFound)
	})
}
