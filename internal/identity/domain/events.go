package domain

import "github.com/keyfold/identity/pkg/idx"

// Event is a domain event recorded by an aggregate. Events are collected
// on the aggregate and drained by the caller after a successful mutation;
// there is no process-wide dispatcher.
type Event interface {
	EventName() string
}

type UserCreated struct {
	UserID idx.ID
	Email  string
}

func (UserCreated) EventName() string { return "user.created" }

type UserPermissionObtained struct {
	UserID     idx.ID
	Permission Permission
}

func (UserPermissionObtained) EventName() string { return "user.permission_obtained" }

type UserPermissionRevoked struct {
	UserID     idx.ID
	Permission Permission
}

func (UserPermissionRevoked) EventName() string { return "user.permission_revoked" }

type UserRoleAssumed struct {
	UserID idx.ID
	RoleID idx.ID
}

func (UserRoleAssumed) EventName() string { return "user.role_assumed" }

type UserRoleRevoked struct {
	UserID idx.ID
	RoleID idx.ID
}

func (UserRoleRevoked) EventName() string { return "user.role_revoked" }
