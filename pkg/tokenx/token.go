// Package tokenx implements the wire form of issued tokens: a compact
// HMAC-signed claims token (the codec) wrapped in a versioned symmetric
// encryption envelope so token contents are opaque to callers.
package tokenx

import (
	"strings"
	"time"

	"github.com/keyfold/identity/pkg/idx"
)

// Kind discriminates access tokens from refresh tokens. The zero value is
// deliberately invalid.
type Kind int

const (
	KindAccess Kind = iota + 1
	KindRefresh
)

// Valid reports whether k is a recognized token kind.
func (k Kind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

func (k Kind) String() string {
	switch k {
	case KindAccess:
		return "access"
	case KindRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// Default lifetimes, applied when Info carries no explicit expiry.
const (
	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 365 * 24 * time.Hour
)

// Info is the decoded content of a token: identity, owning application,
// kind, granted permissions and expiry.
type Info struct {
	ID            idx.ID
	ApplicationID idx.ID
	Kind          Kind
	Permissions   []string // rendered "Resource.Name" entries
	ExpiresAt     time.Time
}

// Expired reports whether the token is past its expiry at the given time.
func (i Info) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// ValidPermission reports whether s is a well-formed "Resource.Name" pair:
// exactly one dot, both halves non-empty, no embedded whitespace.
func ValidPermission(s string) bool {
	resource, name, ok := strings.Cut(s, ".")
	if !ok || resource == "" || name == "" {
		return false
	}
	if strings.ContainsAny(s, " \t\n") || strings.Contains(name, ".") {
		return false
	}
	return true
}
