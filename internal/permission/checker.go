// Package permission decides whether a (user, project, uri, method) tuple is
// authorized. Resolution runs against the database on every request so role
// and permission edits take effect immediately, with no cache to invalidate.
package permission

import (
	"context"
	"net/http"
	"strings"

	"testhub/backend/internal/permission/domain"
)

// rule maps a URI prefix to the module a caller must hold to touch it.
// The table is ordered: first (longest, most specific) matching prefix wins.
type rule struct {
	prefix string
	module string
}

// ruleTable is consulted top to bottom. Admin surfaces come first so that
// an admin route is never satisfied by an artifact-module grant.
var ruleTable = []rule{
	{prefix: "/admin", module: domain.ModuleAdmin},
	{prefix: "/api/admin", module: domain.ModuleAdmin},
	{prefix: "/api/user", module: domain.ModuleAdmin},
	{prefix: "/api/role", module: domain.ModuleAdmin},
	{prefix: "/api/permission", module: domain.ModuleAdmin},
	{prefix: "/api/case", module: domain.ModuleCase},
	{prefix: "/api/bug", module: domain.ModuleBug},
	{prefix: "/api/plan", module: domain.ModulePlan},
	{prefix: "/api/element", module: domain.ModuleElement},
}

// scopeForMethod classifies the HTTP method: reads need "read", everything
// else needs "write".
func scopeForMethod(method string) string {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead:
		return domain.ScopeRead
	default:
		return domain.ScopeWrite
	}
}

// resolveRule returns the (module, scope) a request must be granted, or
// ok=false when no rule covers the URI.
func resolveRule(uri, method string) (module, scope string, ok bool) {
	best := -1
	for i, r := range ruleTable {
		if strings.HasPrefix(uri, r.prefix) {
			if best == -1 || len(r.prefix) > len(ruleTable[best].prefix) {
				best = i
			}
		}
	}
	if best == -1 {
		return "", "", false
	}
	return ruleTable[best].module, scopeForMethod(method), true
}

// Repo is the minimal role/permission lookup the checker needs.
type Repo interface {
	RoleIDsForUser(ctx context.Context, userID string, projectID int64) ([]int64, error)
	PermissionsForRoles(ctx context.Context, roleIDs []int64) ([]domain.Permission, error)
}

// Checker answers authorization questions against the role-permission tables.
type Checker struct {
	repo Repo
}

// NewChecker returns a Checker backed by repo.
func NewChecker(repo Repo) *Checker {
	return &Checker{repo: repo}
}

// Check reports whether the user may perform method on uri within the
// project. A URI no rule covers, a user with no roles, and a permission set
// without the required (module, scope) all answer false without error; only
// data-access failures return an error.
func (c *Checker) Check(ctx context.Context, userID string, projectID int64, uri, method string) (bool, error) {
	module, scope, ok := resolveRule(uri, method)
	if !ok {
		return false, nil
	}
	roleIDs, err := c.repo.RoleIDsForUser(ctx, userID, projectID)
	if err != nil {
		return false, err
	}
	if len(roleIDs) == 0 {
		return false, nil
	}
	perms, err := c.repo.PermissionsForRoles(ctx, roleIDs)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p.Module == module && p.Scope == scope {
			return true, nil
		}
	}
	return false, nil
}
