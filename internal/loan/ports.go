package loan

import (
	"context"
	"time"
)

//go:generate mockgen -source=ports.go -destination=mock_repository_test.go -package=loan

// Repository defines the contract for loan storage.
//
// Borrow and Update run their callback inside a transaction that holds the
// relevant row locks; an error from the callback aborts without writing.
type Repository interface {
	Borrow(ctx context.Context, bookID, borrowerID string, decide func(BorrowState) (Loan, error)) (Loan, error)
	Update(ctx context.Context, id string, mutate func(*Loan) error) (Loan, error)
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
	GetByID(ctx context.Context, id string) (Loan, error)
	List(ctx context.Context, q Query) ([]Loan, error)
	Stats(ctx context.Context, userID string) (Stats, error)
}
