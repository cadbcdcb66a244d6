package repository

import (
	"context"

	"testhub/backend/internal/permission/domain"
)

// Repository defines persistence for roles, permissions, and user-role links.
type Repository interface {
	// RoleIDsForUser returns the ids of the roles the user holds in the project.
	RoleIDsForUser(ctx context.Context, userID string, projectID int64) ([]int64, error)
	// PermissionsForRoles returns all permissions granted by any of the roles.
	PermissionsForRoles(ctx context.Context, roleIDs []int64) ([]domain.Permission, error)

	CreateRole(ctx context.Context, r *domain.Role) error
	GetRole(ctx context.Context, id int64) (*domain.Role, error)
	// DeleteRole removes the role together with its permissions and user
	// links in one transaction.
	DeleteRole(ctx context.Context, id int64) error
	GrantPermission(ctx context.Context, p *domain.Permission) error
	AssignRole(ctx context.Context, rel *domain.UserRoleRelation) error
}
