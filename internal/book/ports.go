package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_repository_test.go -package=book

// Repository defines the contract for book data storage.
//
// Update loads the book under a row lock, hands it to apply, and persists
// the result in the same transaction; an error from apply aborts the update.
type Repository interface {
	List(ctx context.Context, q Query) ([]Book, int, error)
	GetByID(ctx context.Context, id string) (Book, error)
	Create(ctx context.Context, b *Book) error
	Update(ctx context.Context, id string, apply func(*Book) error) (Book, error)
	Delete(ctx context.Context, id string) error
	UpsertByISBN(ctx context.Context, b *Book) error
}
