package service

import (
	"context"
	"errors"
	"time"

	"github.com/keyfold/identity/internal/identity/domain"
	"github.com/keyfold/identity/internal/identity/store"
	"github.com/keyfold/identity/pkg/cryptox"
	"github.com/keyfold/identity/pkg/idx"
	"github.com/keyfold/identity/pkg/slogx"
)

// UserService manages user accounts, their permission grants and role
// memberships. Aggregate events are drained and logged after each
// successful persist.
type UserService struct {
	Store store.Store
}

// Register creates a user from an email and a plaintext password.
func (s *UserService) Register(ctx context.Context, email, password string) (domain.User, error) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}

	user, err := domain.NewUser(email, hash, time.Now())
	if err != nil {
		return domain.User{}, err
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		return domain.User{}, err
	}

	s.logEvents(ctx, &user)
	return user, nil
}

// ObtainPermission grants a direct permission to the user.
func (s *UserService) ObtainPermission(ctx context.Context, userID idx.ID, permission domain.Permission) error {
	return s.mutate(ctx, userID, func(u *domain.User) error {
		return u.ObtainPermission(permission)
	})
}

// RevokePermission removes a direct permission from the user.
func (s *UserService) RevokePermission(ctx context.Context, userID idx.ID, permission domain.Permission) error {
	return s.mutate(ctx, userID, func(u *domain.User) error {
		return u.RevokePermission(permission)
	})
}

// AssumeRole adds a role membership. The role must exist.
func (s *UserService) AssumeRole(ctx context.Context, userID, roleID idx.ID) error {
	if _, err := s.Store.Roles().GetRoleByID(ctx, roleID); err != nil {
		return err
	}
	return s.mutate(ctx, userID, func(u *domain.User) error {
		return u.AssumeRole(roleID)
	})
}

// RevokeRole removes a role membership.
func (s *UserService) RevokeRole(ctx context.Context, userID, roleID idx.ID) error {
	return s.mutate(ctx, userID, func(u *domain.User) error {
		return u.RevokeRole(roleID)
	})
}

// CreateRole constructs and persists an immutable role.
func (s *UserService) CreateRole(ctx context.Context, name, description string, permissions []domain.Permission) (domain.Role, error) {
	role := domain.NewRole(name, description, permissions, time.Now())
	if err := s.Store.Roles().CreateRole(ctx, role); err != nil {
		return domain.Role{}, err
	}
	return role, nil
}

// mutate loads the aggregate, applies fn, persists and logs events.
func (s *UserService) mutate(ctx context.Context, userID idx.ID, fn func(*domain.User) error) error {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return UserNotFoundError{ID: userID}
		}
		return err
	}

	if err := fn(&user); err != nil {
		return err
	}

	user.UpdatedAt = time.Now()
	if err := s.Store.Users().UpdateUser(ctx, user); err != nil {
		return err
	}

	s.logEvents(ctx, &user)
	return nil
}

func (s *UserService) logEvents(ctx context.Context, user *domain.User) {
	log := slogx.FromContext(ctx)
	for _, ev := range user.PendingEvents() {
		log.Info("domain event", "event", ev.EventName(), "user_id", user.ID.String())
	}
	user.ClearEvents()
}
