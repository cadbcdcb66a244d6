// Package domain holds the role-based access control entities. Roles are
// scoped to a project; a user gains permissions only through a
// user-role-relation row for that project.
package domain

import "time"

// Role is a named bundle of permissions within one project.
type Role struct {
	ID        int64
	Name      string
	ProjectID int64
	CreatedAt time.Time
}

// Permission grants a role access to one module at one scope.
// Scope is "read" or "write".
type Permission struct {
	ID     int64
	RoleID int64
	Module string
	Scope  string
}

// UserRoleRelation links a user to a role for a project.
type UserRoleRelation struct {
	ID        int64
	UserID    string
	RoleID    int64
	ProjectID int64
}

const (
	ScopeRead  = "read"
	ScopeWrite = "write"
)

// Modules protected by the rule table.
const (
	ModuleAdmin   = "admin"
	ModuleCase    = "case"
	ModuleBug     = "bug"
	ModulePlan    = "plan"
	ModuleElement = "element"
)
