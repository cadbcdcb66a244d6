package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"testhub/backend/internal/db"
	"testhub/backend/internal/user/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = "id, name, email, password, enabled, deleted, created_at, updated_at"

// GetByID returns the user for id, or nil if not found or deleted.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getBy(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted = FALSE`, id)
}

// GetByName returns the user with the given login name, or nil if not found.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	return r.getBy(ctx, `SELECT `+userColumns+` FROM users WHERE name = $1 AND deleted = FALSE`, name)
}

// GetByEmail returns the user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getBy(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1 AND deleted = FALSE`, email)
}

func (r *PostgresRepository) getBy(ctx context.Context, query string, arg any) (*domain.User, error) {
	var u domain.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&u.ID, &u.Name, &u.Email, &u.Password, &u.Enabled, &u.Deleted, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

// Create persists the user. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, name, email, password, enabled, deleted, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)`,
		u.ID, u.Name, u.Email, u.Password, u.Enabled, u.CreatedAt, u.UpdatedAt)
	return err
}

// CreateWithRole inserts the user and the default role link in one
// transaction so a registered user can never exist without their role.
func (r *PostgresRepository) CreateWithRole(ctx context.Context, u *domain.User, roleID, projectID int64) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, name, email, password, enabled, deleted, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)`,
			u.ID, u.Name, u.Email, u.Password, u.Enabled, u.CreatedAt, u.UpdatedAt)
		if err != nil {
			return err
		}
		if roleID == 0 {
			return nil
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_role_relations (user_id, role_id, project_id) VALUES ($1, $2, $3)`,
			u.ID, roleID, projectID)
		return err
	})
}

// Update rewrites the mutable fields of an existing user record.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = $2, email = $3, password = $4, enabled = $5, updated_at = $6
		 WHERE id = $1 AND deleted = FALSE`,
		u.ID, u.Name, u.Email, u.Password, u.Enabled, time.Now().UTC())
	return err
}

// SetEnabled flips the enabled flag without touching other fields.
func (r *PostgresRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET enabled = $2, updated_at = $3 WHERE id = $1 AND deleted = FALSE`,
		id, enabled, time.Now().UTC())
	return err
}

// SoftDelete marks the user deleted. The unique name and email stay claimed,
// matching the audit retention rule for accounts.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET deleted = TRUE, enabled = FALSE, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC())
	return err
}
