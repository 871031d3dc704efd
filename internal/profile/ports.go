package profile

import (
	"context"

	"libraryapi/internal/identity"
)

//go:generate mockgen -source=ports.go -destination=mock_repository_test.go -package=profile

// Repository defines the contract for profile storage.
type Repository interface {
	Create(ctx context.Context, p *Profile) error
	GetByEmail(ctx context.Context, email string) (Profile, error)
	GetByID(ctx context.Context, id string) (Profile, error)
	List(ctx context.Context, q Query) ([]Profile, int, error)
	UpdateRole(ctx context.Context, id string, role identity.Role) (Profile, error)
}
