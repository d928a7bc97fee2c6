// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// Roles carried in access tokens.
const (
	RoleAdmin        = "admin"
	RoleManufacturer = "manufacturer"
	RoleDistributor  = "distributor"
)

// UserContext contains authenticated user information.
// PartyKind/PartyID link the user to the manufacturer or distributor it acts for.
type UserContext struct {
	UserID    string
	Email     string
	Role      string
	PartyKind string
	PartyID   string
}

// IsAdmin reports whether the user may act on behalf of any party.
func (u *UserContext) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// HasRole checks if user has one of the given roles.
func HasRole(ctx context.Context, roles ...string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	for _, r := range roles {
		if u.Role == r {
			return true
		}
	}
	return false
}
