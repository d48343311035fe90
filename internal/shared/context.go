package shared

import (
	"context"
	"strings"
)

// Role names supplied by the authentication collaborator.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleController Role = "controller"
	RoleManager    Role = "manager"
	RoleAccountant Role = "accountant"
	RoleUser       Role = "user"
)

// ParseRole normalises a raw role string.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	switch role {
	case RoleAdmin, RoleController, RoleManager, RoleAccountant, RoleUser:
		return role, true
	}
	return "", false
}

// Identity is the opaque "current identity + role" produced by the auth layer.
type Identity struct {
	UserID    int64
	Role      Role
	CompanyID int64
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
