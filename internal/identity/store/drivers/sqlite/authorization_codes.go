package sqlite

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
		 WHERE code_hash = ? AND application_id = ?`,
		string(hash), applicationID.String())

	var (
		codeHash, appID, permissions string
		expiresAt, createdAt         int64
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
		ExpiresAt:   decodeTime(expiresAt),
		Used:        used,
		Permissions: perms,
		CreatedAt:   decodeTime(createdAt),
	}, nil
}

func (r *authorizationCodesRepo) CreateAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO authorization_codes (code_hash, application_id, expires_at, used, permissions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(c.ID.HashedCode),
		c.ID.ApplicationID.String(),
		encodeTime(c.ExpiresAt),
		c.Used,
		encodePermissions(c.Permissions),
		encodeTime(c.CreatedAt),
	)
	return mapConflict(err)
}

func (r *authorizationCodesRepo) UpdateAuthorizationCode(ctx context.Context, c domain.AuthorizationCode) error {
	// The used guard makes the spend conditional: a concurrent exchange
	// that already flipped the flag leaves this update with nothing to
	// touch, so a code can only be spent once.
	res, err := r.db.ExecContext(ctx,
		`UPDATE authorization_codes SET used = ?
		 WHERE code_hash = ? AND application_id = ? AND used = 0`,
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
		`SELECT 1 FROM authorization_codes WHERE code_hash = ? AND application_id = ?`,
		string(c.ID.HashedCode), c.ID.ApplicationID.String()).Scan(&one)
	if err != nil {
		return mapNotFound(err)
	}
	return domain.ErrAuthorizationCodeUsed
}

func (r *authorizationCodesRepo) DeleteExpiredAuthorizationCodes(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM authorization_codes WHERE expires_at < ?`,
		encodeTime(time.Now()))
	return err
}
