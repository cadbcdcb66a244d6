package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"testhub/backend/internal/db"
	"testhub/backend/internal/permission/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a role/permission repository backed by db.
func NewPostgresRepository(database *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: database}
}

// RoleIDsForUser returns the role ids the user holds in the project.
func (r *PostgresRepository) RoleIDsForUser(ctx context.Context, userID string, projectID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT role_id FROM user_role_relations WHERE user_id = $1 AND project_id = $2`,
		userID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PermissionsForRoles returns every permission granted by the given roles.
// An empty role list short-circuits to no permissions.
func (r *PostgresRepository) PermissionsForRoles(ctx context.Context, roleIDs []int64) ([]domain.Permission, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, role_id, module, scope FROM permissions WHERE role_id = ANY($1)`,
		pq.Array(roleIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Permission
	for rows.Next() {
		var p domain.Permission
		if err := rows.Scan(&p.ID, &p.RoleID, &p.Module, &p.Scope); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateRole inserts the role and assigns its id.
func (r *PostgresRepository) CreateRole(ctx context.Context, role *domain.Role) error {
	role.CreatedAt = time.Now().UTC()
	return r.db.QueryRowContext(ctx,
		`INSERT INTO roles (name, project_id, created_at) VALUES ($1, $2, $3) RETURNING id`,
		role.Name, role.ProjectID, role.CreatedAt).Scan(&role.ID)
}

// GetRole returns the role for id, or nil if absent.
func (r *PostgresRepository) GetRole(ctx context.Context, id int64) (*domain.Role, error) {
	var role domain.Role
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, project_id, created_at FROM roles WHERE id = $1`, id).
		Scan(&role.ID, &role.Name, &role.ProjectID, &role.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

// DeleteRole unlinks permissions and user relations, then removes the role,
// all in one transaction so a half-deleted role is never visible.
func (r *PostgresRepository) DeleteRole(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM permissions WHERE role_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_role_relations WHERE role_id = $1`, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, id)
		return err
	})
}

// GrantPermission adds a (module, scope) grant to a role. Duplicate grants
// are absorbed by the unique constraint.
func (r *PostgresRepository) GrantPermission(ctx context.Context, p *domain.Permission) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO permissions (role_id, module, scope) VALUES ($1, $2, $3)
		 ON CONFLICT (role_id, module, scope) DO UPDATE SET module = EXCLUDED.module
		 RETURNING id`,
		p.RoleID, p.Module, p.Scope).Scan(&p.ID)
}

// AssignRole links a user to a role within a project.
func (r *PostgresRepository) AssignRole(ctx context.Context, rel *domain.UserRoleRelation) error {
	return r.db.QueryRowContext(ctx,
		`INSERT INTO user_role_relations (user_id, role_id, project_id) VALUES ($1, $2, $3)
		 ON CONFLICT (user_id, role_id, project_id) DO UPDATE SET role_id = EXCLUDED.role_id
		 RETURNING id`,
		rel.UserID, rel.RoleID, rel.ProjectID).Scan(&rel.ID)
}
