package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"testhub/backend/internal/db"
	"testhub/backend/internal/filemodule/domain"
)

// artifact table per module kind; KindBug shares the case table.
func artifactTable(kind domain.Kind) string {
	switch kind {
	case domain.KindCase, domain.KindBug:
		return "functional_cases"
	case domain.KindPlan:
		return "test_plans"
	case domain.KindElement:
		return "ui_elements"
	default:
		return ""
	}
}

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a file-module repository backed by db.
func NewPostgresRepository(database *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: database}
}

const moduleColumns = "id, name, kind, position, parent_id, project_id, deleted, created_at, updated_at"

// ListByProjectAndKind returns non-deleted modules ordered by position. The
// ORDER BY is part of the contract: the tree builder sorts siblings again,
// but callers iterating the flat list rely on it too.
func (r *PostgresRepository) ListByProjectAndKind(ctx context.Context, projectID int64, kind domain.Kind) ([]domain.FileModule, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+moduleColumns+` FROM file_modules
		 WHERE project_id = $1 AND kind = $2 AND deleted = FALSE
		 ORDER BY position, id`,
		projectID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FileModule
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// GetByID returns the module for id, or nil if absent or deleted.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.FileModule, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+moduleColumns+` FROM file_modules WHERE id = $1 AND deleted = FALSE`, id)
	m, err := scanModule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// CountArtifacts counts non-deleted artifacts directly attached to moduleID.
func (r *PostgresRepository) CountArtifacts(ctx context.Context, moduleID int64, kind domain.Kind) (int, error) {
	table := artifactTable(kind)
	if table == "" {
		return 0, nil
	}
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+table+` WHERE module_id = $1 AND deleted = FALSE`, moduleID).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Create inserts the module at the end of its sibling list. Position
// assignment and the insert run in one transaction so two concurrent creates
// cannot claim the same slot.
func (r *PostgresRepository) Create(ctx context.Context, m *domain.FileModule) error {
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var position int
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM file_modules
			 WHERE project_id = $1 AND kind = $2 AND parent_id IS NOT DISTINCT FROM $3 AND deleted = FALSE`,
			m.ProjectID, string(m.Kind), m.ParentID).Scan(&position)
		if err != nil {
			return err
		}
		m.Position = position
		return tx.QueryRowContext(ctx,
			`INSERT INTO file_modules (name, kind, position, parent_id, project_id, deleted, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)
			 RETURNING id`,
			m.Name, string(m.Kind), m.Position, m.ParentID, m.ProjectID, m.CreatedAt, m.UpdatedAt).Scan(&m.ID)
	})
}

// Update renames and/or reparents the module.
func (r *PostgresRepository) Update(ctx context.Context, id int64, name string, parentID *int64) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE file_modules SET name = $2, parent_id = $3, updated_at = $4
		 WHERE id = $1 AND deleted = FALSE AND (name <> $2 OR parent_id IS DISTINCT FROM $3)`,
		id, name, parentID, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SoftDelete marks the module deleted without touching descendants.
func (r *PostgresRepository) SoftDelete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE file_modules SET deleted = TRUE, updated_at = $2 WHERE id = $1`,
			id, time.Now().UTC())
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanModule(row rowScanner) (*domain.FileModule, error) {
	var m domain.FileModule
	var kind string
	var parent sql.NullInt64
	if err := row.Scan(&m.ID, &m.Name, &kind, &m.Position, &parent, &m.ProjectID, &m.Deleted, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.Kind = domain.ParseKind(kind)
	if parent.Valid {
		v := parent.Int64
		m.ParentID = &v
	}
	return &m, nil
}
