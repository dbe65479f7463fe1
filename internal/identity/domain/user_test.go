package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/keyfold/identity/pkg/cryptox"
	"github.com/keyfold/identity/pkg/idx"
)

func newTestUser(t *testing.T) User {
	t.Helper()

	hash, err := cryptox.HashPassword("password")
	require.NoError(t, err)

	u, err := NewUser("alice@example.com", hash, time.Now())
	require.NoError(t, err)
	u.ClearEvents()
	return u
}

func TestNewUser(t *testing.T) {
	t.Parallel()

	hash, err := cryptox.HashPassword("password")
	require.NoError(t, err)

	u, err := NewUser("alice@example.com", hash, time.Now())
	require.NoError(t, err)
	require.False(t, u.ID.IsZero())

	events := u.PendingEvents()
	require.Len(t, events, 1)
	require.Equal(t, UserCreated{UserID: u.ID, Email: "alice@example.com"}, events[0])

	_, err = NewUser("", hash, time.Now())
	require.ErrorIs(t, err, ErrEmptyEmail)

	_, err = NewUser("bob@example.com", []byte("short"), time.Now())
	require.ErrorIs(t, err, cryptox.ErrWrongHashedPassword)
}

func TestUserPermissions(t *testing.T) {
	t.Parallel()

	u := newTestUser(t)
	read := Permission{Resource: "tabs", Name: "Read"}

	require.NoError(t, u.ObtainPermission(read))
	require.True(t, u.HasDirectPermission(read))
	require.ErrorIs(t, u.ObtainPermission(read), ErrPermissionAlreadyGranted)

	require.NoError(t, u.RevokePermission(read))
	require.False(t, u.HasDirectPermission(read))
	require.ErrorIs(t, u.RevokePermission(read), ErrPermissionNotGranted)

	require.Equal(t, []Event{
		UserPermissionObtained{UserID: u.ID, Permission: read},
		UserPermissionRevoked{UserID: u.ID, Permission: read},
	}, u.PendingEvents())
}

func TestUserRoles(t *testing.T) {
	t.Parallel()

	u := newTestUser(t)
	roleID := idx.New()

	require.NoError(t, u.AssumeRole(roleID))
	require.True(t, u.HasRole(roleID))
	require.ErrorIs(t, u.AssumeRole(roleID), ErrRoleAlreadyAssumed)

	require.NoError(t, u.RevokeRole(roleID))
	require.False(t, u.HasRole(roleID))
	require.ErrorIs(t, u.RevokeRole(roleID), ErrRoleNotAssumed)

	require.ErrorIs(t, u.AssumeRole(idx.Zero), idx.ErrInvalid)
}

func TestClearEvents(t *testing.T) {
	t.Parallel()

	u := newTestUser(t)
	require.NoError(t, u.ObtainPermission(Permission{Resource: "tabs", Name: "Read"}))
	require.NotEmpty(t, u.PendingEvents())

	u.ClearEvents()
	require.Empty(t, u.PendingEvents())
}
