package postgres

import (
	"context"
	"time"

	"github.com/keyfold/identity/internal/identity/domain"
	"github.com/keyfold/identity/pkg/idx"
)

type refreshTokensRepo struct {
	db dbtx
}

func (r *refreshTokensRepo) GetRefreshToken(ctx context.Context, tokenID idx.ID) (domain.StoredRefreshToken, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT token_id, application_id, expires_at, used, created_at, updated_at
		 FROM refresh_tokens WHERE token_id = $1`,
		tokenID.String())

	var (
		id, appID                       string
		expiresAt, createdAt, updatedAt time.Time
		used                            bool
	)
	if err := row.Scan(&id, &appID, &expiresAt, &used, &createdAt, &updatedAt); err != nil {
		return domain.StoredRefreshToken{}, mapNotFound(err)
	}

	tid, err := idx.Parse(id)
	if err != nil {
		return domain.StoredRefreshToken{}, err
	}
	aid, err := idx.Parse(appID)
	if err != nil {
		return domain.StoredRefreshToken{}, err
	}

	return domain.StoredRefreshToken{
		TokenID:       tid,
		ApplicationID: aid,
		ExpiresAt:     expiresAt,
		Used:          used,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}, nil
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.StoredRefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (token_id, application_id, expires_at, used, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.TokenID.String(),
		t.ApplicationID.String(),
		t.ExpiresAt.UTC(),
		t.Used,
		t.CreatedAt.UTC(),
		t.UpdatedAt.UTC(),
	)
	return mapConflict(err)
}

func (r *refreshTokensRepo) UpdateRefreshToken(ctx context.Context, t domain.StoredRefreshToken) error {
	// Conditional spend, same as authorization codes: only one of two
	// concurrent rotations may flip the flag.
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET used = $1, updated_at = $2
		 WHERE token_id = $3 AND used = FALSE`,
		t.Used,
		t.UpdatedAt.UTC(),
		t.TokenID.String(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	var one int
	err = r.db.QueryRowContext(ctx,
		`SELECT 1 FROM refresh_tokens WHERE token_id = $1`,
		t.TokenID.String()).Scan(&one)
	if err != nil {
		return mapNotFound(err)
	}
	return domain.ErrTokenUsedBefore
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < now()`)
	return err
}
