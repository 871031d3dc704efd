package loan

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a loan.
type Status string

const (
	StatusBorrowed Status = "borrowed"
	StatusOverdue  Status = "overdue"
	StatusReturned Status = "returned"
)

// Open reports whether the loan still holds a copy of the book.
func (s Status) Open() bool {
	return s == StatusBorrowed || s == StatusOverdue
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.Open() || s == StatusReturned
}

const (
	// DefaultLoanPeriod is the time between borrow and due date.
	DefaultLoanPeriod = 14 * 24 * time.Hour

	DefaultExtensionDays = 14
	MaxExtensionDays     = 365
)

var (
	ErrNotFound             = errors.New("loan not found")
	ErrBookNotFound         = errors.New("book not found")
	ErrBorrowerNotFound     = errors.New("borrower not found")
	ErrUnavailable          = errors.New("no copies of this book are available")
	ErrDuplicateLoan        = errors.New("borrower already has this book on loan")
	ErrAlreadyReturned      = errors.New("loan has already been returned")
	ErrCannotExtendReturned = errors.New("cannot extend a returned loan")

	ErrValidation    = errors.New("validation failed")
	ErrInvalidDays   = fmt.Errorf("%w: days must be between 1 and %d", ErrValidation, MaxExtensionDays)
	ErrInvalidStatus = fmt.Errorf("%w: unknown loan status", ErrValidation)
)

// IsNotFound reports whether err means a referenced loan, book or borrower does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrBookNotFound) || errors.Is(err, ErrBorrowerNotFound)
}

// BookSummary is the slice of the catalog shown next to a loan.
type BookSummary struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// Loan records one borrower holding one copy of a book.
type Loan struct {
	ID         string       `json:"id"`
	BookID     string       `json:"book_id"`
	UserID     string       `json:"user_id"`
	BorrowDate time.Time    `json:"borrow_date"`
	DueDate    time.Time    `json:"due_date"`
	ReturnDate *time.Time   `json:"return_date"`
	Status     Status       `json:"status"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
	Book       *BookSummary `json:"book,omitempty"`
}

// Query filters loan listings. Zero values mean "any".
type Query struct {
	UserID string
	BookID string
	Status Status
	Limit  int
	Offset int
}

// Stats counts a borrower's open loans by state.
type Stats struct {
	CurrentBorrowed int `json:"current_borrowed"`
	Overdue         int `json:"overdue"`
}

// BorrowState is what the store knows about a book and a borrower at the
// moment a borrow is decided, read under the book's row lock.
type BorrowState struct {
	BookFound           bool
	Book                BookSummary
	TotalCopies         int
	OpenLoans           int
	BorrowerFound       bool
	BorrowerHasOpenLoan bool
}

// Available is the number of copies not on loan.
func (s BorrowState) Available() int {
	return max(s.TotalCopies-s.OpenLoans, 0)
}
