package service

import (
	"time"

	"github.com/keyfold/identity/internal/identity/domain"
	"github.com/keyfold/identity/pkg/idx"
	"github.com/keyfold/identity/pkg/tokenx"
)

// BearerTokenType is the token_type reported with every issued pair.
const BearerTokenType = "Bearer"

// TokenIssuer mints and parses opaque wire tokens. The pipeline is
// sign-then-encrypt: the codec produces a signed compact token, the envelope
// encrypts it and prefixes the algorithm version.
type TokenIssuer struct {
	Codec    *tokenx.Codec
	Envelope *tokenx.Envelope
}

// IssuePair mints an access/refresh pair for the given application and
// permission scope. Zero expiry times fall back to the kind defaults. The
// returned StoredRefreshToken is what the caller persists; the pair carries
// only opaque strings.
func (i *TokenIssuer) IssuePair(
	applicationID idx.ID,
	permissions []domain.Permission,
	accessExpiresAt, refreshExpiresAt time.Time,
	now time.Time,
) (domain.TokenPair, domain.StoredRefreshToken, error) {
	if accessExpiresAt.IsZero() {
		accessExpiresAt = now.Add(tokenx.AccessTokenTTL)
	}
	if refreshExpiresAt.IsZero() {
		refreshExpiresAt = now.Add(tokenx.RefreshTokenTTL)
	}

	perms := domain.PermissionStrings(permissions)

	access, err := i.seal(tokenx.Info{
		ID:            idx.New(),
		ApplicationID: applicationID,
		Kind:          tokenx.KindAccess,
		Permissions:   perms,
		ExpiresAt:     accessExpiresAt,
	})
	if err != nil {
		return domain.TokenPair{}, domain.StoredRefreshToken{}, err
	}

	refreshID := idx.New()
	refresh, err := i.seal(tokenx.Info{
		ID:            refreshID,
		ApplicationID: applicationID,
		Kind:          tokenx.KindRefresh,
		Permissions:   perms,
		ExpiresAt:     refreshExpiresAt,
	})
	if err != nil {
		return domain.TokenPair{}, domain.StoredRefreshToken{}, err
	}

	pair := domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    BearerTokenType,
		ExpiresIn:    accessExpiresAt.Sub(now),
	}
	record := domain.StoredRefreshToken{
		TokenID:       refreshID,
		ApplicationID: applicationID,
		ExpiresAt:     refreshExpiresAt,
		Used:          false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return pair, record, nil
}

// Parse opens and decodes an opaque wire token. Tampering, a wrong key, or
// malformed claims surface as the codec/envelope errors.
func (i *TokenIssuer) Parse(value string) (tokenx.Info, error) {
	encoded, err := i.Envelope.OpenString(value)
	if err != nil {
		return tokenx.Info{}, err
	}
	return i.Codec.Decode(encoded)
}

func (i *TokenIssuer) seal(info tokenx.Info) (string, error) {
	encoded, err := i.Codec.Encode(info)
	if err != nil {
		return "", err
	}
	sealed, err := i.Envelope.Seal(encoded)
	if err != nil {
		return "", err
	}
	return sealed.String(), nil
}
