package repository

import (
	"context"

	"testhub/backend/internal/filemodule/domain"
)

// Repository defines persistence for file modules and the artifact counts the
// tree builder attaches to them.
type Repository interface {
	// ListByProjectAndKind returns non-deleted modules for the project and
	// kind, ordered by position.
	ListByProjectAndKind(ctx context.Context, projectID int64, kind domain.Kind) ([]domain.FileModule, error)
	GetByID(ctx context.Context, id int64) (*domain.FileModule, error)
	// CountArtifacts returns the number of non-deleted artifacts directly
	// attached to moduleID for the given kind.
	CountArtifacts(ctx context.Context, moduleID int64, kind domain.Kind) (int, error)
	// Create inserts the module at the end of its siblings and fills in the
	// assigned id and position.
	Create(ctx context.Context, m *domain.FileModule) error
	// Update renames and/or reparents the module. Returns the number of rows
	// changed (0 when the module does not exist or nothing changed).
	Update(ctx context.Context, id int64, name string, parentID *int64) (int64, error)
	// SoftDelete marks the module deleted. Descendants keep their parent
	// pointers; rows are never physically removed while children may
	// reference them.
	SoftDelete(ctx context.Context, id int64) error
}
