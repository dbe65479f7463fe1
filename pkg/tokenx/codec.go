package tokenx

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/keyfold/identity/pkg/idx"
)

// Fixed issuer and audience claims. Both are part of the wire contract and
// verified on decode.
const (
	Issuer   = "Identity"
	Audience = "Users"
)

// ErrInvalidToken is returned for any token value that fails signature,
// issuer/audience or claim validation. The message is part of the service
// contract.
var ErrInvalidToken = errors.New("Invalid token given.")

// wireClaims is the JWT payload. Permissions travel as a single
// space-separated string, token kind as an integer symbol.
type wireClaims struct {
	jwt.RegisteredClaims

	TokenType   int    `json:"tokenType"`
	Permissions string `json:"permissions"`
}

// Codec encodes and decodes token Info to and from a compact HMAC-SHA256
// signed string. Encoding a fully specified Info is deterministic under a
// fixed signing key.
type Codec struct {
	key []byte
}

// NewCodec creates a codec from raw signing key material.
func NewCodec(signingKey []byte) (*Codec, error) {
	if len(signingKey) == 0 {
		return nil, errors.New("tokenx: signing key can't be empty")
	}
	return &Codec{key: signingKey}, nil
}

// Encode serializes info into a signed compact token. A zero ID gets a
// fresh random identifier; a zero expiry is derived from the kind
// (access: now+24h, refresh: now+1y).
func (c *Codec) Encode(info Info) (string, error) {
	if info.ApplicationID.IsZero() {
		return "", fmt.Errorf("tokenx: encode: application id can't be empty")
	}
	if !info.Kind.Valid() {
		return "", fmt.Errorf("tokenx: encode: unknown token kind %d", info.Kind)
	}
	// Decode refuses an empty permissions claim, so never mint one.
	if len(info.Permissions) == 0 {
		return "", fmt.Errorf("tokenx: encode: permissions can't be empty")
	}
	for _, p := range info.Permissions {
		if !ValidPermission(p) {
			return "", fmt.Errorf("tokenx: encode: malformed permission %q", p)
		}
	}

	id := info.ID
	if id.IsZero() {
		id = idx.New()
	}

	expiresAt := info.ExpiresAt
	if expiresAt.IsZero() {
		expiresAt = time.Now().Add(defaultTTL(info.Kind))
	}

	claims := wireClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id.String(),
			Subject:   info.ApplicationID.String(),
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TokenType:   int(info.Kind),
		Permissions: strings.Join(info.Permissions, " "),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("tokenx: sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and every required claim, returning the
// embedded Info. Any failure maps to ErrInvalidToken; the cause is not
// distinguished on the wire.
//
// A token whose expiry lies in the past still decodes: expiry is a state
// check made by the token's holder, not a structural one. Claims validation
// is therefore done by hand rather than by the jwt validator.
func (c *Codec) Decode(value string) (Info, error) {
	parsed, err := jwt.ParseWithClaims(
		value,
		&wireClaims{},
		func(*jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !parsed.Valid {
		return Info{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*wireClaims)
	if !ok {
		return Info{}, ErrInvalidToken
	}

	if claims.Issuer != Issuer {
		return Info{}, ErrInvalidToken
	}
	if len(claims.Audience) != 1 || claims.Audience[0] != Audience {
		return Info{}, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return Info{}, ErrInvalidToken
	}

	id, err := idx.Parse(claims.ID)
	if err != nil {
		return Info{}, ErrInvalidToken
	}
	applicationID, err := idx.Parse(claims.Subject)
	if err != nil {
		return Info{}, ErrInvalidToken
	}

	kind := Kind(claims.TokenType)
	if !kind.Valid() {
		return Info{}, ErrInvalidToken
	}

	permissions, err := parsePermissions(claims.Permissions)
	if err != nil {
		return Info{}, ErrInvalidToken
	}

	return Info{
		ID:            id,
		ApplicationID: applicationID,
		Kind:          kind,
		Permissions:   permissions,
		ExpiresAt:     claims.ExpiresAt.Time,
	}, nil
}

// Validate reports whether value decodes to a well-formed token.
func (c *Codec) Validate(value string) error {
	_, err := c.Decode(value)
	return err
}

// parsePermissions splits the space-separated claim. One malformed entry
// invalidates the whole list.
func parsePermissions(s string) ([]string, error) {
	if s == "" {
		return nil, ErrInvalidToken
	}
	parts := strings.Split(s, " ")
	for _, p := range parts {
		if !ValidPermission(p) {
			return nil, ErrInvalidToken
		}
	}
	return parts, nil
}

func defaultTTL(kind Kind) time.Duration {
	if kind == KindRefresh {
		return RefreshTokenTTL
	}
	return AccessTokenTTL
}
