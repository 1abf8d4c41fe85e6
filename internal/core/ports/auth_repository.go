package ports

import (
	"context"
	"time"

	"github.com/futurefundi/portal/internal/core/domain"
)

// UserRepository defines persistence for portal accounts.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// UpdateProfile writes only the self-editable fields and returns the
	// stored user.
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*domain.User, error)
}

// SchoolRepository resolves schools by their public registration code.
type SchoolRepository interface {
	FindByCode(ctx context.Context, code string) (*domain.School, error)
}

// TokenBlacklist remembers revoked refresh tokens until they would have
// expired anyway.
type TokenBlacklist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}
