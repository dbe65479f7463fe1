// Package store defines the data access boundary. Concrete drivers
// (sqlite, postgres) implement these interfaces; services never see SQL.
package store

import (
	"context"
	"errors"

	"github.com/keyfold/identity/internal/identity/domain"
	"github.com/keyfold/identity/pkg/cryptox"
	"github.com/keyfold/identity/pkg/idx"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Pagination bounds list queries. A zero Limit means the driver default.
type Pagination struct {
	Limit  int
	Offset int
}

// Store is the root data access interface. Sub-repositories keep concerns
// tidy and individually mockable.
type Store interface {
	Users() Users
	Applications() Applications
	AuthorizationCodes() AuthorizationCodes
	RefreshTokens() RefreshTokens
	Roles() Roles

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx;
	// a transaction that is never committed rolls back.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within one transaction: rollback when fn returns
	// an error, commit when it returns nil. Multi-step grant flows rely on
	// this for their atomicity.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transaction-scoped store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id idx.ID) (domain.User, error)

	// GetUserByEmail is used during credential authentication.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	ListUsers(ctx context.Context, p Pagination) ([]domain.User, error)

	CreateUser(ctx context.Context, u domain.User) error

	// UpdateUser persists the whole aggregate: email, password hash,
	// direct permissions and role memberships.
	UpdateUser(ctx context.Context, u domain.User) error

	DeleteUser(ctx context.Context, id idx.ID) error
}

type Applications interface {
	GetApplicationByID(ctx context.Context, id idx.ID) (domain.Application, error)

	ListApplications(ctx context.Context, p Pagination) ([]domain.Application, error)

	// ListApplicationsByOwner returns the applications a user registered.
	ListApplicationsByOwner(ctx context.Context, userID idx.ID, p Pagination) ([]domain.Application, error)

	CreateApplication(ctx context.Context, a domain.Application) error

	UpdateApplication(ctx context.Context, a domain.Application) error

	DeleteApplication(ctx context.Context, id idx.ID) error
}

type AuthorizationCodes interface {
	// GetAuthorizationCode looks a code up by its compound key: the code
	// fingerprint scoped to the issuing application.
	GetAuthorizationCode(ctx context.Context, applicationID idx.ID, hash cryptox.HashedCode) (domain.AuthorizationCode, error)

	CreateAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error

	// UpdateAuthorizationCode persists state transitions, in practice the
	// one-way flip of the used flag.
	UpdateAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error

	// DeleteExpiredAuthorizationCodes is housekeeping.
	DeleteExpiredAuthorizationCodes(ctx context.Context) error
}

type RefreshTokens interface {
	GetRefreshToken(ctx context.Context, tokenID idx.ID) (domain.StoredRefreshToken, error)

	CreateRefreshToken(ctx context.Context, t domain.StoredRefreshToken) error

	// UpdateRefreshToken persists the used flag flip during rotation.
	UpdateRefreshToken(ctx context.Context, t domain.StoredRefreshToken) error

	// DeleteExpiredRefreshTokens is housekeeping.
	DeleteExpiredRefreshTokens(ctx context.Context) error
}

type Roles interface {
	GetRoleByID(ctx context.Context, id idx.ID) (domain.Role, error)

	ListRoles(ctx context.Context, p Pagination) ([]domain.Role, error)

	CreateRole(ctx context.Context, r domain.Role) error

	DeleteRole(ctx context.Context, id idx.ID) error
}
