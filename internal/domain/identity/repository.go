package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/domain/pricing"
	"github.com/homestead/backend/internal/domain/shared"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindAll(ctx context.Context, filter UserFilter) ([]*User, int64, error)
	// Save inserts or updates; a duplicate email returns shared.ErrAlreadyExists
	Save(ctx context.Context, user *User) error
	// SaveWithMarkup inserts a new user and its first markup tier in one transaction
	SaveWithMarkup(ctx context.Context, user *User, tier *pricing.MarkupTier) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Count(ctx context.Context) (int64, error)
}

// UserFilter contains filter options for querying users
type UserFilter struct {
	shared.Filter
	Role   *Role
	Active *bool
}
