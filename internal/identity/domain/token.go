package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/keyfold/identity/pkg/idx"
	"github.com/keyfold/identity/pkg/tokenx"
)

var (
	ErrTokenExpired = errors.New("Token has expired.")
	// ErrTokenUsed is the verification failure for a spent refresh token.
	ErrTokenUsed = errors.New("Token has been used.")
	// ErrTokenUsedBefore is the state error for consuming a spent refresh
	// token a second time.
	ErrTokenUsedBefore = errors.New("Token was used before.")
	// ErrRefreshTokenIDGiven rejects refresh token content where an access
	// token was required.
	ErrRefreshTokenIDGiven = errors.New("Refresh token id given.")
	// ErrAccessTokenIDGiven rejects access token content where a refresh
	// token was required.
	ErrAccessTokenIDGiven = errors.New("Access token id given.")
)

// Token is the decoded identity of an issued token: id, owning
// application, kind, granted permission set and expiry. Kind-specific
// behavior hangs off the wrapper types below, selected by the kind tag
// rather than subclassing.
type Token struct {
	ID            idx.ID
	ApplicationID idx.ID
	Kind          tokenx.Kind
	Permissions   []Permission
	ExpiresAt     time.Time
}

// tokenFromInfo converts decoded wire content into a Token.
func tokenFromInfo(info tokenx.Info) (Token, error) {
	permissions, err := ParsePermissions(info.Permissions)
	if err != nil {
		return Token{}, err
	}
	return Token{
		ID:            info.ID,
		ApplicationID: info.ApplicationID,
		Kind:          info.Kind,
		Permissions:   permissions,
		ExpiresAt:     info.ExpiresAt,
	}, nil
}

// Info renders the token back into wire content, e.g. for re-encoding
// during rotation.
func (t Token) Info() tokenx.Info {
	return tokenx.Info{
		ID:            t.ID,
		ApplicationID: t.ApplicationID,
		Kind:          t.Kind,
		Permissions:   PermissionStrings(t.Permissions),
		ExpiresAt:     t.ExpiresAt,
	}
}

// verifyRule is one ordered validation step. Rules short-circuit: the
// first failure is the result, failures are never aggregated.
type verifyRule func(now time.Time) error

func (t Token) expiryRule(now time.Time) error {
	if now.After(t.ExpiresAt) {
		return ErrTokenExpired
	}
	return nil
}

func (t Token) verify(now time.Time, extra ...verifyRule) error {
	rules := append([]verifyRule{t.expiryRule}, extra...)
	for _, rule := range rules {
		if err := rule(now); err != nil {
			return err
		}
	}
	return nil
}

// AccessToken wraps a Token that must be of the access kind.
type AccessToken struct {
	Token
}

// NewAccessToken constructs the access wrapper, failing fast on refresh
// token content.
func NewAccessToken(info tokenx.Info) (AccessToken, error) {
	if info.Kind != tokenx.KindAccess {
		return AccessToken{}, ErrRefreshTokenIDGiven
	}
	t, err := tokenFromInfo(info)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: t}, nil
}

// Verify checks the token is still live.
func (t AccessToken) Verify(now time.Time) error {
	return t.verify(now)
}

// RefreshToken wraps a Token of the refresh kind plus its persisted used
// state.
type RefreshToken struct {
	Token
	Used bool
}

// NewRefreshToken constructs the refresh wrapper, failing fast on access
// token content.
func NewRefreshToken(info tokenx.Info, used bool) (RefreshToken, error) {
	if info.Kind != tokenx.KindRefresh {
		return RefreshToken{}, ErrAccessTokenIDGiven
	}
	t, err := tokenFromInfo(info)
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{Token: t, Used: used}, nil
}

// Verify checks expiry first, then the used flag.
func (t RefreshToken) Verify(now time.Time) error {
	return t.verify(now, t.usedRule)
}

func (t RefreshToken) usedRule(time.Time) error {
	if t.Used {
		return ErrTokenUsed
	}
	return nil
}

// Use consumes the refresh token. The transition is one-way; retrying a
// spent or expired token always fails.
func (t *RefreshToken) Use(now time.Time) error {
	if t.Used {
		return ErrTokenUsedBefore
	}
	if err := t.expiryRule(now); err != nil {
		return err
	}
	t.Used = true
	return nil
}

// StoredRefreshToken is the persisted record backing a refresh token. The
// token id is the key; everything else the token carries travels inside
// its encrypted wire value.
type StoredRefreshToken struct {
	TokenID       idx.ID
	ApplicationID idx.ID
	ExpiresAt     time.Time
	Used          bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TokenPair is the result of a successful token or refresh grant.
type TokenPair struct {
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	TokenType    string        `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    time.Duration `json:"-"`
}

// MarshalJSON emits expires_in as whole seconds. A raw time.Duration
// would serialize as nanoseconds, which no token consumer expects.
func (p TokenPair) MarshalJSON() ([]byte, error) {
	type alias TokenPair
	return json.Marshal(struct {
		alias
		ExpiresIn int64 `json:"expires_in"`
	}{alias(p), int64(p.ExpiresIn / time.Second)})
}
