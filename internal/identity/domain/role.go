package domain

import (
	"time"

	"github.com/keyfold/identity/pkg/idx"
)

// Role is a named permission bundle. Roles are immutable once constructed;
// a user's effective permissions are their direct grants plus the
// permissions of every role they hold.
type Role struct {
	ID          idx.ID
	Name        string
	Description string
	Permissions []Permission
	CreatedAt   time.Time
}

// NewRole constructs a role with a fresh id.
func NewRole(name, description string, permissions []Permission, now time.Time) Role {
	return Role{
		ID:          idx.New(),
		Name:        name,
		Description: description,
		Permissions: permissions,
		CreatedAt:   now,
	}
}

// HasPermission reports whether the role grants p.
func (r Role) HasPermission(p Permission) bool {
	return ContainsPermission(r.Permissions, p)
}
