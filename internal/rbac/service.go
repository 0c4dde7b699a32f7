package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/bago-furniture/bago-inventory/internal/shared"
)

// RoleLookup resolves a user's role. It is implemented by the users repository.
type RoleLookup interface {
	RoleOf(ctx context.Context, userID int64) (role string, active bool, err error)
}

// Service orchestrates RBAC operations.
type Service struct {
	lookup RoleLookup
}

// NewService constructs a Service backed by the provided lookup.
func NewService(lookup RoleLookup) *Service {
	return &Service{lookup: lookup}
}

// ListRoles returns all roles with their permissions.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(roles))
	for _, role := range roles {
		role.Permissions = append([]string(nil), role.Permissions...)
		out = append(out, role)
	}
	return out, nil
}

// ListPermissions returns all permissions ordered as declared.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	scopes := shared.AllScopes()
	perms := make([]Permission, 0, len(scopes))
	for _, name := range scopes {
		perms = append(perms, Permission{Name: name, Description: permissionDescriptions[name]})
	}
	return perms, nil
}

// EffectivePermissions returns the permissions of an active user.
// Deactivated or deleted users resolve to ErrUnauthorized.
func (s *Service) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	role, active, err := s.lookup.RoleOf(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrUnauthorized
		}
		return nil, fmt.Errorf("rbac: lookup role: %w", err)
	}
	if !active {
		return nil, shared.ErrUnauthorized
	}
	return PermissionsFor(role), nil
}
