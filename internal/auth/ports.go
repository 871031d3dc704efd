package auth

import (
	"context"
	"time"

	"libraryapi/internal/profile"
)

//go:generate mockgen -source=ports.go -destination=mock_ports_test.go -package=auth

// ProfileStore is the part of the profile service that auth needs.
type ProfileStore interface {
	Register(ctx context.Context, name, email, passwordHash string) (profile.Profile, error)
	GetByEmail(ctx context.Context, email string) (profile.Profile, error)
}

// Blacklist records revoked access tokens until they would have expired anyway.
type Blacklist interface {
	AddToken(ctx context.Context, jti, userID string, expiresAt time.Time) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	CleanupExpired(ctx context.Context) (int, error)
}
