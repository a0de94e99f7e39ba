// Package authcontext carries the authenticated principal of a request. Services
// read identity only from the context they are called with.
package authcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleProfessional = "professional"
	RoleAdmin        = "admin"
)

// Principal is the identity resolved from a session.
type Principal struct {
	UserID    snowflake.ID
	SessionID snowflake.ID
	Role      string
	Email     string
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

type principalKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the principal, if a session was authenticated.
func FromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	if !ok || p.UserID == 0 {
		return Principal{}, false
	}
	return p, true
}

// UserIDFromContext is a shortcut for services that only scope by owner.
func UserIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	p, ok := FromContext(ctx)
	if !ok {
		return 0, false
	}
	return p.UserID, true
}
