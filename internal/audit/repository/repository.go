package repository

import (
	"context"

	"testhub/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	ListByProject(ctx context.Context, projectID int64, limit, offset int32) ([]*domain.AuditLog, error)
}
