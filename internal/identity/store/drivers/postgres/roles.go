package postgres

import (
	"context"
	"time"

	"github.com/keyfold/identity/internal/identity/domain"
	"github.com/keyfold/identity/internal/identity/store"
	"github.com/keyfold/identity/pkg/idx"
)

type rolesRepo struct {
	db dbtx
}

const roleColumns = `id, name, description, permissions, created_at`

func (r *rolesRepo) GetRoleByID(ctx context.Context, id idx.ID) (domain.Role, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+roleColumns+` FROM roles WHERE id = $1`, id.String())
	return scanRole(row)
}

func (r *rolesRepo) ListRoles(ctx context.Context, p store.Pagination) ([]domain.Role, error) {
	p = clampPagination(p)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+roleColumns+` FROM roles ORDER BY name LIMIT $1 OFFSET $2`,
		p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func (r *rolesRepo) CreateRole(ctx context.Context, role domain.Role) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO roles (`+roleColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		role.ID.String(),
		role.Name,
		role.Description,
		encodePermissions(role.Permissions),
		role.CreatedAt.UTC(),
	)
	return mapConflict(err)
}

func (r *rolesRepo) DeleteRole(ctx context.Context, id idx.ID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id.String())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func scanRole(s scanner) (domain.Role, error) {
	var (
		id, name, description, permissions string
		createdAt                          time.Time
	)
	if err := s.Scan(&id, &name, &description, &permissions, &createdAt); err != nil {
		return domain.Role{}, mapNotFound(err)
	}

	rid, err := idx.Parse(id)
	if err != nil {
		return domain.Role{}, err
	}
	perms, err := decodePermissions(permissions)
	if err != nil {
		return domain.Role{}, err
	}

	return domain.Role{
		ID:          rid,
		Name:        name,
		Description: description,
		Permissions: perms,
		CreatedAt:   createdAt,
	}, nil
}
