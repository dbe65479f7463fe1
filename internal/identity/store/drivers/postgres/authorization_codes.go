package postgres

import (
	"context"
	"time"

	"github.com/keyfold/identity/internal/identity/domain"
	"github.com/keyfold/identity/pkg/cryptox"
	"github.com/keyfold/identity/pkg/idx"
)

type authorizationCodesRepo struct {
	db dbtx
}

func (r *authorizationCodesRepo) GetAuthorizationCode(ctx context.Context, applicationID idx.ID, hash cryptox.HashedCode) (domain.AuthorizationCode, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT code_hash, application_id, expires_at, used, permissions, created_at
		 FROM authorization_codes
		 WHERE code_hash = $1 AND application_id = $2`,
		string(hash), applicationID.String())

	var (
		codeHash, appID, permissions string
		expiresAt, createdAt         time.Time
		used                         bool
	)
	if err := row.Scan(&codeHash, &appID, &expiresAt, &used, &permissions, &createdAt); err != nil {
		return domain.AuthorizationCode{}, mapNotFound(err)
	}

	aid, err := idx.Parse(appID)
	if err != nil {
		return domain.AuthorizationCode{}, err
	}
	perms, err := decodePermissions(permissions)
	if err != nil {
		return domain.AuthorizationCode{}, err
	}

	return domain.AuthorizationCode{
		ID: domain.AuthorizationCodeID{
			HashedCode:    cryptox.HashedCode(codeHash),
			ApplicationID: aid,
		},
		ExpiresAt:   expiresAt,
		Used:        used,
		Permissions: perms,
		CreatedAt:   createdAt,
	}, nil
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO authorization_codes (code_hash, application_id, expires_at, used, permissions, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		string(c.ID.HashedCode),
		c.ID.ApplicationID.String(),
		c.ExpiresAt.UTC(),
		c.Used,
		encodePermissions(c.Permissions),
		c.CreatedAt.UTC(),
	)
	return mapConflict(err)
}

func (r *authorizationCodesRepo) UpdateAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error {
	// The used guard makes the spend conditional. Under read committed
	// the loser of two concurrent exchanges blocks on the row lock, then
	// re-evaluates the predicate against the winner's committed row and
	// matches nothing, so a code can only be spent once.
	res, err := r.db.ExecContext(ctx,
		`UPDATE authorization_codes SET used = $1
		 WHERE code_hash = $2 AND application_id = $3 AND used = FALSE`,
		c.Used,
		string(c.ID.HashedCode),
		c.ID.ApplicationID.String(),
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
		`SELECT 1 FROM authorization_codes WHERE code_hash = $1 AND application_id = $2`,
		string(c.ID.HashedCode), c.ID.ApplicationID.String()).Scan(&one)
	if err != nil {
		return mapNotFound(err)
	}
	return domain.ErrAuthorizationCodeUsed
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM authorization_codes WHERE expires_at < now()`)
	return err
}
