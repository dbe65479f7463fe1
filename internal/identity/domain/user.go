package domain

import (
	"errors"
	"time"

	"github.com/keyfold/identity/pkg/cryptox"
	"github.com/keyfold/identity/pkg/idx"
)

var (
	ErrEmptyEmail               = errors.New("email can't be empty")
	ErrPermissionAlreadyGranted = errors.New("user already has the given permission")
	ErrPermissionNotGranted     = errors.New("user does not have the given permission")
	ErrRoleAlreadyAssumed       = errors.New("user already assumed the given role")
	ErrRoleNotAssumed           = errors.New("user never assumed the given role")
)

// User is the account aggregate. Direct permissions and assumed roles are
// owned by value; no shared mutable state crosses users. Successful
// mutations record domain events on the aggregate.
type User struct {
	ID          idx.ID
	Email       string
	Password    cryptox.HashedPassword
	RoleIDs     []idx.ID
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time

	events []Event
}

// NewUser creates a user and records UserCreated.
func NewUser(email string, password cryptox.HashedPassword, now time.Time) (User, error) {
	if email == "" {
		return User{}, ErrEmptyEmail
	}
	if _, err := cryptox.ParseHashedPassword(password); err != nil {
		return User{}, err
	}

	u := User{
		ID:        idx.New(),
		Email:     email,
		Password:  password,
		CreatedAt: now,
		UpdatedAt: now,
	}
	u.record(UserCreated{UserID: u.ID, Email: email})
	return u, nil
}

// ObtainPermission grants a direct permission. Granting a permission the
// user already holds is an error.
func (u *User) ObtainPermission(p Permission) error {
	if p.IsZero() {
		return ErrMalformedPermission
	}
	if ContainsPermission(u.Permissions, p) {
		return ErrPermissionAlreadyGranted
	}
	u.Permissions = append(u.Permissions, p)
	u.record(UserPermissionObtained{UserID: u.ID, Permission: p})
	return nil
}

// RevokePermission removes a direct permission. Revoking a permission the
// user never held is an error.
func (u *User) RevokePermission(p Permission) error {
	for i, have := range u.Permissions {
		if have == p {
			u.Permissions = append(u.Permissions[:i], u.Permissions[i+1:]...)
			u.record(UserPermissionRevoked{UserID: u.ID, Permission: p})
			return nil
		}
	}
	return ErrPermissionNotGranted
}

// AssumeRole adds a role membership. Assuming an already-assumed role is
// an error.
func (u *User) AssumeRole(roleID idx.ID) error {
	if roleID.IsZero() {
		return idx.ErrInvalid
	}
	if u.HasRole(roleID) {
		return ErrRoleAlreadyAssumed
	}
	u.RoleIDs = append(u.RoleIDs, roleID)
	u.record(UserRoleAssumed{UserID: u.ID, RoleID: roleID})
	return nil
}

// RevokeRole removes a role membership. Revoking a role that was never
// assumed is an error.
func (u *User) RevokeRole(roleID idx.ID) error {
	for i, have := range u.RoleIDs {
		if have == roleID {
			u.RoleIDs = append(u.RoleIDs[:i], u.RoleIDs[i+1:]...)
			u.record(UserRoleRevoked{UserID: u.ID, RoleID: roleID})
			return nil
		}
	}
	return ErrRoleNotAssumed
}

// HasRole reports whether the user assumed the given role.
func (u *User) HasRole(roleID idx.ID) bool {
	for _, have := range u.RoleIDs {
		if have == roleID {
			return true
		}
	}
	return false
}

// HasDirectPermission reports whether p was granted directly, ignoring
// role-derived permissions.
func (u *User) HasDirectPermission(p Permission) bool {
	return ContainsPermission(u.Permissions, p)
}

// PendingEvents returns events recorded since the last drain.
func (u *User) PendingEvents() []Event {
	return u.events
}

// ClearEvents drains the recorded events.
func (u *User) ClearEvents() {
	u.events = nil
}

func (u *User) record(e Event) {
	u.events = append(u.events, e)
}
