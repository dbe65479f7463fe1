package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/keyfold/identity/internal/identity/domain"
	"github.com/keyfold/identity/internal/identity/store"
	"github.com/keyfold/identity/pkg/cryptox"
	"github.com/keyfold/identity/pkg/idx"
)

type applicationsRepo struct {
	db dbtx
}

const applicationColumns = `id, user_id, name, secret_key, homepage_url, callback_url, created_at, updated_at`

func (r *applicationsRepo) GetApplicationByID(ctx context.Context, id idx.ID) (domain.Application, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id.String())
	return scanApplication(row)
}

func (r *applicationsRepo) ListApplications(ctx context.Context, p store.Pagination) ([]domain.Application, error) {
	p = clampPagination(p)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications ORDER BY id LIMIT $1 OFFSET $2`,
		p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApplications(rows)
}

func (r *applicationsRepo) ListApplicationsByOwner(ctx context.Context, userID idx.ID, p store.Pagination) ([]domain.Application, error) {
	p = clampPagination(p)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE user_id = $1 ORDER BY id LIMIT $2 OFFSET $3`,
		userID.String(), p.Limit, p.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectApplications(rows)
}

func (r *applicationsRepo) CreateApplication(ctx context.Context, a domain.Application) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO applications (`+applicationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID.String(),
		a.UserID.String(),
		a.Name,
		[]byte(a.SecretKey),
		a.HomepageURL,
		a.CallbackURL,
		a.CreatedAt.UTC(),
		a.UpdatedAt.UTC(),
	)
	return mapConflict(err)
}

func (r *applicationsRepo) UpdateApplication(ctx context.Context, a domain.Application) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE applications
		 SET name = $1, secret_key = $2, homepage_url = $3, callback_url = $4, updated_at = $5
		 WHERE id = $6`,
		a.Name,
		[]byte(a.SecretKey),
		a.HomepageURL,
		a.CallbackURL,
		a.UpdatedAt.UTC(),
		a.ID.String(),
	)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *applicationsRepo) DeleteApplication(ctx context.Context, id idx.ID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM applications WHERE id = $1`, id.String())
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func collectApplications(rows *sql.Rows) ([]domain.Application, error) {
	var apps []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

func scanApplication(s scanner) (domain.Application, error) {
	var (
		id, userID, name, homepageURL, callbackURL string
		secretKey                                  []byte
		createdAt, updatedAt                       time.Time
	)
	if err := s.Scan(&id, &userID, &name, &secretKey, &homepageURL, &callbackURL, &createdAt, &updatedAt); err != nil {
		return domain.Application{}, mapNotFound(err)
	}

	aid, err := idx.Parse(id)
	if err != nil {
		return domain.Application{}, err
	}
	uid, err := idx.Parse(userID)
	if err != nil {
		return domain.Application{}, err
	}

	return domain.Application{
		ID:          aid,
		UserID:      uid,
		Name:        name,
		SecretKey:   cryptox.EncryptedSecretKey(secretKey),
		HomepageURL: homepageURL,
		CallbackURL: callbackURL,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}
