package profile

import (
	"context"
	"strings"

	"libraryapi/internal/identity"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register stores a new student profile. passwordHash must already be hashed.
func (s *Service) Register(ctx context.Context, name, email, passwordHash string) (Profile, error) {
	p := &Profile{
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		Role:         identity.RoleStudent,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return Profile{}, err
	}
	return *p, nil
}

// GetByEmail is used by login; it returns the password hash.
func (s *Service) GetByEmail(ctx context.Context, email string) (Profile, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Get returns a profile the actor may see: their own, or anyone's for staff.
func (s *Service) Get(ctx context.Context, actor identity.Actor, id string) (Profile, error) {
	if err := actor.RequireSelfOrStaff(id); err != nil {
		return Profile{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// List returns members ordered by name. Staff only.
func (s *Service) List(ctx context.Context, actor identity.Actor, q Query) ([]Profile, int, error) {
	if err := actor.RequireStaff(); err != nil {
		return nil, 0, err
	}
	if q.Role != "" && !q.Role.Valid() {
		return nil, 0, ErrInvalidRole
	}
	return s.repo.List(ctx, q)
}

// UpdateRole changes a member's role. Admin only.
func (s *Service) UpdateRole(ctx context.Context, actor identity.Actor, id string, role identity.Role) (Profile, error) {
	if err := actor.RequireAdmin(); err != nil {
		return Profile{}, err
	}
	if !role.Valid() {
		return Profile{}, ErrInvalidRole
	}
	return s.repo.UpdateRole(ctx, id, role)
}
