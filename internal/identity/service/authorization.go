package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/keyfold/identity/internal/identity/domain"
	"github.com/keyfold/identity/internal/identity/obs"
	"github.com/keyfold/identity/internal/identity/store"
	"github.com/keyfold/identity/pkg/cryptox"
	"github.com/keyfold/identity/pkg/idx"
	"github.com/keyfold/identity/pkg/slogx"
)

// DefaultAuthorizationCodeTTL bounds how long a code stays exchangeable.
const DefaultAuthorizationCodeTTL = 10 * time.Minute

var (
	ErrApplicationNotFound       = errors.New("application not found")
	ErrAuthorizationCodeNotFound = errors.New("authorization code not found")
	ErrRefreshTokenNotFound      = errors.New("refresh token not found")

	// Contract errors carried to callers verbatim.
	ErrEmptyPermissions        = errors.New("Permissions can't be empty.")
	ErrWrongCallbackURL        = errors.New("Wrong callback url given.")
	ErrWrongSecretKey          = errors.New("Wrong secret key given.")
	ErrIncompatiblePermissions = errors.New("One or more permissions are incorrect for given application.")
)

// UserNotFoundError carries the missing user's id in its message.
type UserNotFoundError struct {
	ID idx.ID
}

func (e UserNotFoundError) Error() string {
	return fmt.Sprintf("User %s not found.", e.ID)
}

// AuthorizationService orchestrates the authorization-code grant, the token
// grant and the refresh grant. Every multi-step flow runs inside one store
// transaction: any error on the way rolls the whole exchange back.
type AuthorizationService struct {
	Store   store.Store
	Tokens  *TokenIssuer
	Secrets *cryptox.Cipher
	Metrics *obs.Metrics
	CodeTTL time.Duration
}

func (s *AuthorizationService) codeTTL() time.Duration {
	if s.CodeTTL <= 0 {
		return DefaultAuthorizationCodeTTL
	}
	return s.CodeTTL
}

// GenerateAuthorizationCode hands an application a single-use code scoped to
// the requested permissions. The requested set must be covered entirely by
// the owning user's effective permissions (direct grants plus roles); a
// single uncovered permission rejects the whole request. The plaintext code
// is returned exactly once; storage only ever sees its fingerprint.
func (s *AuthorizationService) GenerateAuthorizationCode(
	ctx context.Context,
	applicationID idx.ID,
	callbackURL string,
	permissions []domain.Permission,
) (cryptox.Code, error) {
	log := slogx.FromContext(ctx)

	if len(permissions) == 0 {
		return "", ErrEmptyPermissions
	}

	app, err := s.Store.Applications().GetApplicationByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrApplicationNotFound
		}
		return "", err
	}
	if callbackURL != app.CallbackURL {
		return "", ErrWrongCallbackURL
	}

	owner, err := s.Store.Users().GetUserByID(ctx, app.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", UserNotFoundError{ID: app.UserID}
		}
		return "", err
	}

	effective, err := s.effectivePermissions(ctx, owner)
	if err != nil {
		return "", err
	}
	for _, p := range permissions {
		if !domain.ContainsPermission(effective, p) {
			return "", ErrIncompatiblePermissions
		}
	}

	code, err := cryptox.GenerateCode()
	if err != nil {
		return "", err
	}

	record := domain.NewAuthorizationCode(code, app.ID, permissions, s.codeTTL(), time.Now())
	if err := s.Store.AuthorizationCodes().CreateAuthorizationCode(ctx, record); err != nil {
		return "", err
	}

	s.Metrics.AuthorizationCodeIssued()
	log.Info("authorization code issued",
		"application_id", app.ID.String(),
		"permissions", len(permissions))
	return code, nil
}

// GenerateTokens exchanges an authorization code plus the application secret
// for a token pair. Marking the code used and persisting the new refresh
// token happen in the same transaction; a failure on either side leaves the
// code unspent.
func (s *AuthorizationService) GenerateTokens(
	ctx context.Context,
	applicationID idx.ID,
	secretKey cryptox.SecretKey,
	callbackURL string,
	code cryptox.Code,
) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	app, err := s.Store.Applications().GetApplicationByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrApplicationNotFound
		}
		return domain.TokenPair{}, err
	}

	// Deterministic encryption lets secrets compare on cipher bytes without
	// a decrypt round-trip.
	if !s.Secrets.EncryptSecret(secretKey).Equal(app.SecretKey) {
		return domain.TokenPair{}, ErrWrongSecretKey
	}
	if callbackURL != app.CallbackURL {
		return domain.TokenPair{}, ErrWrongCallbackURL
	}

	now := time.Now()

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		record, err := tx.AuthorizationCodes().GetAuthorizationCode(ctx, app.ID, cryptox.FingerprintCode(code))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrAuthorizationCodeNotFound
			}
			return err
		}

		if err := record.Use(now); err != nil {
			return err
		}
		if err := tx.AuthorizationCodes().UpdateAuthorizationCode(ctx, record); err != nil {
			return err
		}

		issued, refresh, err := s.Tokens.IssuePair(app.ID, record.Permissions, time.Time{}, time.Time{}, now)
		if err != nil {
			return err
		}
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, refresh); err != nil {
			return err
		}

		pair = issued
		return nil
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	s.Metrics.TokensIssued(obs.GrantAuthorizationCode)
	log.Info("token pair issued", "application_id", app.ID.String(), "grant", obs.GrantAuthorizationCode)
	return pair, nil
}

// RefreshTokens rotates a refresh token: the old token is spent and a new
// pair is issued with the original's permission scope and remaining
// lifetime. Rotation is transactional, so a failed issuance leaves the old
// token unspent.
func (s *AuthorizationService) RefreshTokens(
	ctx context.Context,
	refreshTokenValue string,
	callbackURL string,
) (domain.TokenPair, error) {
	log := slogx.FromContext(ctx)

	info, err := s.Tokens.Parse(refreshTokenValue)
	if err != nil {
		return domain.TokenPair{}, err
	}

	app, err := s.Store.Applications().GetApplicationByID(ctx, info.ApplicationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.TokenPair{}, ErrApplicationNotFound
		}
		return domain.TokenPair{}, err
	}
	if callbackURL != app.CallbackURL {
		return domain.TokenPair{}, ErrWrongCallbackURL
	}

	now := time.Now()

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		stored, err := tx.RefreshTokens().GetRefreshToken(ctx, info.ID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrRefreshTokenNotFound
			}
			return err
		}

		token, err := domain.NewRefreshToken(info, stored.Used)
		if err != nil {
			return err
		}
		if err := token.Use(now); err != nil {
			return err
		}

		stored.Used = true
		stored.UpdatedAt = now
		if err := tx.RefreshTokens().UpdateRefreshToken(ctx, stored); err != nil {
			return err
		}

		// The replacement keeps the original scope and expiry; rotation
		// never extends a grant's lifetime.
		issued, next, err := s.Tokens.IssuePair(app.ID, token.Permissions, time.Time{}, token.ExpiresAt, now)
		if err != nil {
			return err
		}
		if err := tx.RefreshTokens().CreateRefreshToken(ctx, next); err != nil {
			return err
		}

		pair = issued
		return nil
	})
	if err != nil {
		return domain.TokenPair{}, err
	}

	s.Metrics.TokensIssued(obs.GrantRefreshToken)
	log.Info("token pair issued", "application_id", app.ID.String(), "grant", obs.GrantRefreshToken)
	return pair, nil
}

// CheckUserAccess reports whether the user holds the permission directly or
// through any of their roles. The first match wins; a role id that no longer
// resolves fails the check outright rather than being skipped.
func (s *AuthorizationService) CheckUserAccess(
	ctx context.Context,
	userID idx.ID,
	permission domain.Permission,
) (bool, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, UserNotFoundError{ID: userID}
		}
		return false, err
	}

	if user.HasDirectPermission(permission) {
		return true, nil
	}

	for _, roleID := range user.RoleIDs {
		role, err := s.Store.Roles().GetRoleByID(ctx, roleID)
		if err != nil {
			return false, err
		}
		if role.HasPermission(permission) {
			return true, nil
		}
	}
	return false, nil
}

// effectivePermissions resolves direct grants plus every held role's set.
func (s *AuthorizationService) effectivePermissions(ctx context.Context, user domain.User) ([]domain.Permission, error) {
	effective := make([]domain.Permission, 0, len(user.Permissions))
	effective = append(effective, user.Permissions...)

	for _, roleID := range user.RoleIDs {
		role, err := s.Store.Roles().GetRoleByID(ctx, roleID)
		if err != nil {
			return nil, err
		}
		for _, p := range role.Permissions {
			if !domain.ContainsPermission(effective, p) {
				effective = append(effective, p)
			}
		}
	}
	return effective, nil
}
