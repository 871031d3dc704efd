package book

import (
	"context"

	"libraryapi/internal/identity"
)

// Service provides catalog business logic.
type Service struct {
	repo Repository
}

// NewService creates a new book service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns books matching the query ordered by title, with the total match count.
func (s *Service) List(ctx context.Context, q Query) ([]Book, int, error) {
	return s.repo.List(ctx, q)
}

// Get returns a book by id.
func (s *Service) Get(ctx context.Context, id string) (Book, error) {
	return s.repo.GetByID(ctx, id)
}

// Create adds a book to the catalog. Only staff may do this.
func (s *Service) Create(ctx context.Context, actor identity.Actor, cmd CreateCommand) (Book, error) {
	if err := actor.RequireStaff(); err != nil {
		return Book{}, err
	}
	if err := cmd.Validate(); err != nil {
		return Book{}, err
	}
	b := cmd.Book()
	if err := s.repo.Create(ctx, &b); err != nil {
		return Book{}, err
	}
	return b, nil
}

// Update applies a partial update. Lowering total_copies below the number of
// copies on loan is rejected.
func (s *Service) Update(ctx context.Context, actor identity.Actor, id string, cmd UpdateCommand) (Book, error) {
	if err := actor.RequireStaff(); err != nil {
		return Book{}, err
	}
	if err := cmd.Validate(); err != nil {
		return Book{}, err
	}
	return s.repo.Update(ctx, id, cmd.Apply)
}

// Delete removes a book that has no open loans.
func (s *Service) Delete(ctx context.Context, actor identity.Actor, id string) error {
	if err := actor.RequireStaff(); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
