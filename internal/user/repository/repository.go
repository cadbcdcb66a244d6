package repository

import (
	"context"

	"testhub/backend/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByName(ctx context.Context, name string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	// CreateWithRole inserts the user and links roleID for projectID in one
	// transaction. roleID 0 skips the link.
	CreateWithRole(ctx context.Context, u *domain.User, roleID, projectID int64) error
	Update(ctx context.Context, u *domain.User) error
	// SetEnabled flips the enabled flag. A no-op if the state already matches.
	SetEnabled(ctx context.Context, id string, enabled bool) error
	// SoftDelete marks the user deleted; the row stays for audit history.
	SoftDelete(ctx context.Context, id string) error
}
