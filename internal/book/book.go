package book

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const defaultCategory = "Uncategorized"

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound = errors.New("book not found")

	// ErrValidation marks malformed book input. Specific causes wrap it.
	ErrValidation = errors.New("invalid book")

	ErrTitleRequired      = fmt.Errorf("%w: title is required", ErrValidation)
	ErrAuthorRequired     = fmt.Errorf("%w: author is required", ErrValidation)
	ErrCopiesRequired     = fmt.Errorf("%w: total_copies is required", ErrValidation)
	ErrNegativeCopies     = fmt.Errorf("%w: total_copies must not be negative", ErrValidation)
	ErrAvailableMismatch  = fmt.Errorf("%w: available_copies must equal total_copies for a new book", ErrValidation)
	ErrCopiesBelowOnLoan  = fmt.Errorf("%w: total_copies cannot be lower than the number of copies on loan", ErrValidation)
	ErrAvailableReadOnly  = fmt.Errorf("%w: available_copies is derived from open loans and cannot be set", ErrValidation)
	ErrInvalidPublishYear = fmt.Errorf("%w: published_year is out of range", ErrValidation)

	// ErrHasOpenLoans is returned when deleting a book that still has copies out.
	ErrHasOpenLoans = errors.New("book has copies on loan")

	// ErrDuplicateISBN is returned when another book already uses the ISBN.
	ErrDuplicateISBN = errors.New("a book with this isbn already exists")
)

// Book represents a catalog entry. AvailableCopies is derived from open loans
// and is never stored.
type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            *string   `json:"isbn"`
	Category        string    `json:"category"`
	PublishedYear   *int      `json:"published_year"`
	Description     *string   `json:"description"`
	CoverImage      *string   `json:"cover_image"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// OnLoan is the number of copies currently held by borrowers.
func (b Book) OnLoan() int {
	return b.TotalCopies - b.AvailableCopies
}

// Query defines filters and pagination for listing books.
type Query struct {
	Search   string
	Category string
	Limit    int
	Offset   int
}

// CreateCommand carries the fields accepted by AddBook.
type CreateCommand struct {
	Title           string
	Author          string
	ISBN            *string
	Category        string
	PublishedYear   *int
	Description     *string
	CoverImage      *string
	TotalCopies     *int
	AvailableCopies *int
}

func validYear(year *int) bool {
	return year == nil || (*year >= 0 && *year <= time.Now().Year()+1)
}

// Validate checks the command and returns the first problem found.
func (c CreateCommand) Validate() error {
	switch {
	case strings.TrimSpace(c.Title) == "":
		return ErrTitleRequired
	case strings.TrimSpace(c.Author) == "":
		return ErrAuthorRequired
	case c.TotalCopies == nil:
		return ErrCopiesRequired
	case *c.TotalCopies < 0:
		return ErrNegativeCopies
	case c.AvailableCopies != nil && *c.AvailableCopies != *c.TotalCopies:
		return ErrAvailableMismatch
	case !validYear(c.PublishedYear):
		return ErrInvalidPublishYear
	}
	return nil
}

// Book builds the entity to insert. Call Validate first.
func (c CreateCommand) Book() Book {
	category := strings.TrimSpace(c.Category)
	if category == "" {
		category = defaultCategory
	}
	return Book{
		Title:           strings.TrimSpace(c.Title),
		Author:          strings.TrimSpace(c.Author),
		ISBN:            c.ISBN,
		Category:        category,
		PublishedYear:   c.PublishedYear,
		Description:     c.Description,
		CoverImage:      c.CoverImage,
		TotalCopies:     *c.TotalCopies,
		AvailableCopies: *c.TotalCopies,
	}
}

// UpdateCommand is a partial update; nil fields are left unchanged.
type UpdateCommand struct {
	Title           *string
	Author          *string
	ISBN            *string
	Category        *string
	PublishedYear   *int
	Description     *string
	CoverImage      *string
	TotalCopies     *int
	AvailableCopies *int
}

// Validate checks the fields that are present.
func (c UpdateCommand) Validate() error {
	switch {
	case c.Title != nil && strings.TrimSpace(*c.Title) == "":
		return ErrTitleRequired
	case c.Author != nil && strings.TrimSpace(*c.Author) == "":
		return ErrAuthorRequired
	case c.TotalCopies != nil && *c.TotalCopies < 0:
		return ErrNegativeCopies
	case c.AvailableCopies != nil:
		return ErrAvailableReadOnly
	case !validYear(c.PublishedYear):
		return ErrInvalidPublishYear
	}
	return nil
}

// Apply copies the present fields onto b and keeps availability consistent
// with the copies that are out. It fails if fewer copies would remain than are on loan.
func (c UpdateCommand) Apply(b *Book) error {
	onLoan := b.OnLoan()

	if c.Title != nil {
		b.Title = strings.TrimSpace(*c.Title)
	}
	if c.Author != nil {
		b.Author = strings.TrimSpace(*c.Author)
	}
	if c.ISBN != nil {
		b.ISBN = c.ISBN
	}
	if c.Category != nil {
		b.Category = strings.TrimSpace(*c.Category)
		if b.Category == "" {
			b.Category = defaultCategory
		}
	}
	if c.PublishedYear != nil {
		b.PublishedYear = c.PublishedYear
	}
	if c.Description != nil {
		b.Description = c.Description
	}
	if c.CoverImage != nil {
		b.CoverImage = c.CoverImage
	}
	if c.TotalCopies != nil {
		if *c.TotalCopies < onLoan {
			return ErrCopiesBelowOnLoan
		}
		b.TotalCopies = *c.TotalCopies
	}
	b.AvailableCopies = b.TotalCopies - onLoan
	return nil
}
