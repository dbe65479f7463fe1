package domain

import (
	"errors"
	"time"

	"github.com/keyfold/identity/pkg/cryptox"
	"github.com/keyfold/identity/pkg/idx"
)

var (
	// ErrAuthorizationCodeExpired is terminal; an expired code never
	// becomes redeemable again.
	ErrAuthorizationCodeExpired = errors.New("Authorization code has expired.")
	// ErrAuthorizationCodeUsed is terminal; codes are single-use.
	ErrAuthorizationCodeUsed = errors.New("Authorization code was used.")
)

// AuthorizationCodeID is the compound lookup key: the one-way fingerprint
// of the plaintext code, scoped to the issuing application.
type AuthorizationCodeID struct {
	HashedCode    cryptox.HashedCode
	ApplicationID idx.ID
}

// AuthorizationCode is a short-lived, single-use grant of a permission
// set. Only the fingerprint of the plaintext code is persisted.
type AuthorizationCode struct {
	ID          AuthorizationCodeID
	ExpiresAt   time.Time
	Used        bool
	Permissions []Permission
	CreatedAt   time.Time
}

// NewAuthorizationCode mints an unused code record for the given
// application and permission set.
func NewAuthorizationCode(
	code cryptox.Code,
	applicationID idx.ID,
	permissions []Permission,
	ttl time.Duration,
	now time.Time,
) AuthorizationCode {
	return AuthorizationCode{
		ID: AuthorizationCodeID{
			HashedCode:    cryptox.FingerprintCode(code),
			ApplicationID: applicationID,
		},
		ExpiresAt:   now.Add(ttl),
		Used:        false,
		Permissions: permissions,
		CreatedAt:   now,
	}
}

// Verify checks redeemability: expiry first, then the used flag. The first
// failing check wins.
func (c *AuthorizationCode) Verify(now time.Time) error {
	if now.After(c.ExpiresAt) {
		return ErrAuthorizationCodeExpired
	}
	if c.Used {
		return ErrAuthorizationCodeUsed
	}
	return nil
}

// Use consumes the code. The transition to used is one-way and happens at
// most once; callers persist it atomically with token issuance.
func (c *AuthorizationCode) Use(now time.Time) error {
	if err := c.Verify(now); err != nil {
		return err
	}
	c.Used = true
	return nil
}
