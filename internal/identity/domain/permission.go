// Package domain holds the identity entities and value types: users,
// roles, applications, authorization codes and token wrappers. Entities
// carry their own invariants; persistence lives behind the store
// interfaces.
package domain

import (
	"errors"

	"github.com/keyfold/identity/pkg/tokenx"
)

// ErrMalformedPermission reports a permission string that is not a
// well-formed "Resource.Name" pair.
var ErrMalformedPermission = errors.New("malformed permission")

// Permission identifies one grantable capability as a (resource, name)
// pair. Equality is structural; the value is immutable.
type Permission struct {
	Resource string
	Name     string
}

// NewPermission builds a permission, validating both halves.
func NewPermission(resource, name string) (Permission, error) {
	p := Permission{Resource: resource, Name: name}
	if !tokenx.ValidPermission(p.String()) {
		return Permission{}, ErrMalformedPermission
	}
	return p, nil
}

// ParsePermission parses the canonical "Resource.Name" form.
func ParsePermission(s string) (Permission, error) {
	if !tokenx.ValidPermission(s) {
		return Permission{}, ErrMalformedPermission
	}
	i := indexDot(s)
	return Permission{Resource: s[:i], Name: s[i+1:]}, nil
}

func indexDot(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

// String renders the canonical wire form.
func (p Permission) String() string {
	return p.Resource + "." + p.Name
}

// IsZero reports whether p carries no value.
func (p Permission) IsZero() bool {
	return p.Resource == "" && p.Name == ""
}

// ContainsPermission reports whether set holds p.
func ContainsPermission(set []Permission, p Permission) bool {
	for _, have := range set {
		if have == p {
			return true
		}
	}
	return false
}

// PermissionStrings renders every permission in canonical form.
func PermissionStrings(set []Permission) []string {
	out := make([]string, len(set))
	for i, p := range set {
		out[i] = p.String()
	}
	return out
}

// ParsePermissions parses a list of canonical forms. One malformed entry
// fails the whole list.
func ParsePermissions(values []string) ([]Permission, error) {
	out := make([]Permission, len(values))
	for i, v := range values {
		p, err := ParsePermission(v)
		if err != nil {
			return nil, err
		}
		out[i] = p
	}
	return out, nil
}
