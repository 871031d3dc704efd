package profile

import (
	"errors"
	"strings"
	"time"

	"libraryapi/internal/identity"
)

var (
	ErrNotFound      = errors.New("profile not found")
	ErrAlreadyExists = errors.New("email already registered")
	ErrInvalidRole   = errors.New("invalid role")
)

// Profile is a library member. Every profile can borrow; the role decides
// what else it may do.
type Profile struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	Role         identity.Role `json:"role"`
	PasswordHash string        `json:"-"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Actor returns the identity this profile acts as.
func (p Profile) Actor() identity.Actor {
	return identity.Actor{ID: p.ID, Role: p.Role}
}

type Query struct {
	Search string
	Role   identity.Role
	Limit  int
	Offset int
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
