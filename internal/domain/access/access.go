// Package access decides which staff roles may change reports.
package access

import (
	"context"
	"errors"
	"strings"
)

// ErrForbidden is returned when a role may not perform a mutation.
var ErrForbidden = errors.New("role may not modify reports")

// Authorizer answers whether a staff role may mutate reports.
type Authorizer interface {
	CanMutate(ctx context.Context, role string) bool
}

// RoleAuthorizer allows a fixed set of roles. Role names ignore case and
// surrounding space.
type RoleAuthorizer struct {
	allowed map[string]struct{}
}

// NewRoleAuthorizer allows the given roles. With no roles nothing may mutate.
func NewRoleAuthorizer(roles ...string) *RoleAuthorizer {
	a := &RoleAuthorizer{allowed: make(map[string]struct{}, len(roles))}
	for _, r := range roles {
		if r = normalize(r); r != "" {
			a.allowed[r] = struct{}{}
		}
	}
	return a
}

// CanMutate reports whether role is allowed.
func (a *RoleAuthorizer) CanMutate(_ context.Context, role string) bool {
	_, ok := a.allowed[normalize(role)]
	return ok
}

// Require returns ErrForbidden unless role may mutate.
func Require(ctx context.Context, a Authorizer, role string) error {
	if a == nil || a.CanMutate(ctx, role) {
		return nil
	}
	return ErrForbidden
}

func normalize(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
