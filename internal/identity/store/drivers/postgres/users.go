package postgres

import (
	"context"
	"time"

	"github.com/keyfold/identity/internal/identity/domain"
	"github.com/keyfold/identity/internal/identity/store"
	"github.com/keyfold/identity/pkg/cryptox"
	"github.com/keyfold/identity/pkg/idx"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, password, role_ids, permissions, created_at, updated_at`

func (r *usersRepo) GetUserByID(ctx context.Context, id idx.ID) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id.String())
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *usersRepo) ListUsers(ctx context.Context, p store.Pagination) ([]domain.User, error) {
	p = clampPagination(p)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`,
		p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID.String(),
		u.Email,
		[]byte(u.Password),
		encodeIDs(u.RoleIDs),
		encodePermissions(u.Permissions),
		u.CreatedAt.UTC(),
		u.UpdatedAt.UTC(),
	)
	return mapConflict(err)
}

func (r *usersRepo) UpdateUser(ctx context.Context, u domain.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET email = $1, password = $2, role_ids = $3, permissions = $4, updated_at = $5
		 WHERE id = $6`,
		u.Email,
		[]byte(u.Password),
		encodeIDs(u.RoleIDs),
		encodePermissions(u.Permissions),
		u.UpdatedAt.UTC(),
		u.ID.String(),
	)
	if err != nil {
		return mapConflict(err)
	}
	return requireAffected(res)
}

func (r *usersRepo) DeleteUser(ctx context.Context, id idx.ID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id.String())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanUser(s scanner) (domain.User, error) {
	var (
		id, email, roleIDs, permissions string
		password                        []byte
		createdAt, updatedAt            time.Time
	)
	if err := s.Scan(&id, &email, &password, &roleIDs, &permissions, &createdAt, &updatedAt); err != nil {
		return domain.User{}, mapNotFound(err)
	}

	uid, err := idx.Parse(id)
	if err != nil {
		return domain.User{}, err
	}
	roles, err := decodeIDs(roleIDs)
	if err != nil {
		return domain.User{}, err
	}
	perms, err := decodePermissions(permissions)
	if err != nil {
		return domain.User{}, err
	}

	return domain.User{
		ID:          uid,
		Email:       email,
		Password:    cryptox.HashedPassword(password),
		RoleIDs:     roles,
		Permissions: perms,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}
