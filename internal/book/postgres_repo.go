package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"libraryapi/internal/platform/postgres"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dialect = "postgres"

// availableCopiesSQL derives free copies from open loans; books has no counter column.
const availableCopiesSQL = `GREATEST(b.total_copies - (
		SELECT COUNT(*) FROM borrowings l
		WHERE l.book_id = b.id AND l.status IN ('borrowed', 'overdue')
	), 0)`

const selectByIDSQL = `
	SELECT b.id, b.title, b.author, b.isbn, b.category, b.published_year, b.description,
	       b.cover_image, b.total_copies, ` + availableCopiesSQL + `, b.created_at, b.updated_at
	FROM books b
	WHERE b.id = $1`

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func scanBook(row pgx.Row, b *Book) error {
	return row.Scan(
		&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Category, &b.PublishedYear, &b.Description,
		&b.CoverImage, &b.TotalCopies, &b.AvailableCopies, &b.CreatedAt, &b.UpdatedAt,
	)
}

func (r *PostgresRepo) filtered(q Query) *goqu.SelectDataset {
	ds := goqu.Dialect(dialect).From(goqu.T("books").As("b"))

	if q.Search != "" {
		pattern := "%" + postgres.EscapeLike(q.Search) + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("b.title").ILike(pattern),
			goqu.I("b.author").ILike(pattern),
			goqu.I("b.isbn").ILike(pattern),
			goqu.I("b.category").ILike(pattern),
		))
	}
	if q.Category != "" {
		ds = ds.Where(goqu.I("b.category").Eq(q.Category))
	}
	return ds
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, int, error) {
	base := r.filtered(q)

	countSQL, countArgs, err := base.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	dataSQL, dataArgs, err := base.
		Select(
			goqu.I("b.id"), goqu.I("b.title"), goqu.I("b.author"), goqu.I("b.isbn"),
			goqu.I("b.category"), goqu.I("b.published_year"), goqu.I("b.description"),
			goqu.I("b.cover_image"), goqu.I("b.total_copies"),
			goqu.L(availableCopiesSQL).As("available_copies"),
			goqu.I("b.created_at"), goqu.I("b.updated_at"),
		).
		Order(goqu.I("b.title").Asc(), goqu.I("b.id").Asc()).
		Limit(uint(max(q.Limit, 0))).
		Offset(uint(max(q.Offset, 0))).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("build list query: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRow(timeoutCtx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	rows, err := r.db.Query(timeoutCtx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	out := make([]Book, 0)
	for rows.Next() {
		var b Book
		if err := scanBook(rows, &b); err != nil {
			return nil, 0, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	return out, total, nil
}

func (r *PostgresRepo) getByID(ctx context.Context, q queryer, id string) (Book, error) {
	var b Book
	if err := scanBook(q.QueryRow(ctx, selectByIDSQL, id), &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Book, error) {
	if !postgres.ValidUUID(id) {
		return Book{}, ErrNotFound
	}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.getByID(timeoutCtx, r.db, id)
}

func (r *PostgresRepo) Create(ctx context.Context, b *Book) error {
	const query = `
	INSERT INTO books (title, author, isbn, category, published_year, description, cover_image, total_copies)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id, created_at, updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query,
		b.Title, b.Author, b.ISBN, b.Category, b.PublishedYear, b.Description, b.CoverImage, b.TotalCopies,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ErrDuplicateISBN
		}
		return fmt.Errorf("insert book: %w", err)
	}
	b.AvailableCopies = b.TotalCopies
	return nil
}

// lockBook takes the row lock that serializes catalog edits with borrows of the same book.
func lockBook(ctx context.Context, tx pgx.Tx, id string) error {
	var locked string
	err := tx.QueryRow(ctx, `SELECT id FROM books WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock book: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Update(ctx context.Context, id string, apply func(*Book) error) (Book, error) {
	if !postgres.ValidUUID(id) {
		return Book{}, ErrNotFound
	}
	const query = `
	UPDATE books
	SET title = $2, author = $3, isbn = $4, category = $5, published_year = $6,
	    description = $7, cover_image = $8, total_copies = $9
	WHERE id = $1
	RETURNING updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var out Book
	err := pgx.BeginTxFunc(timeoutCtx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := lockBook(timeoutCtx, tx, id); err != nil {
			return err
		}
		// Read after the lock so the open loan count includes every committed borrow.
		b, err := r.getByID(timeoutCtx, tx, id)
		if err != nil {
			return err
		}
		if err := apply(&b); err != nil {
			return err
		}
		err = tx.QueryRow(timeoutCtx, query,
			id, b.Title, b.Author, b.ISBN, b.Category, b.PublishedYear, b.Description, b.CoverImage, b.TotalCopies,
		).Scan(&b.UpdatedAt)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return ErrDuplicateISBN
			}
			return fmt.Errorf("update book: %w", err)
		}
		out = b
		return nil
	})
	if err != nil {
		return Book{}, err
	}
	return out, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	if !postgres.ValidUUID(id) {
		return ErrNotFound
	}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	return pgx.BeginTxFunc(timeoutCtx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if err := lockBook(timeoutCtx, tx, id); err != nil {
			return err
		}
		var open int
		err := tx.QueryRow(timeoutCtx,
			`SELECT COUNT(*) FROM borrowings WHERE book_id = $1 AND status IN ('borrowed', 'overdue')`, id,
		).Scan(&open)
		if err != nil {
			return fmt.Errorf("count open loans: %w", err)
		}
		if open > 0 {
			return ErrHasOpenLoans
		}
		if _, err := tx.Exec(timeoutCtx, `DELETE FROM books WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
		return nil
	})
}

// UpsertByISBN inserts b or refreshes the catalog fields of the book with the
// same ISBN. total_copies never drops below the copies currently on loan.
func (r *PostgresRepo) UpsertByISBN(ctx context.Context, b *Book) error {
	if b.ISBN == nil || *b.ISBN == "" {
		return ErrValidation
	}
	const query = `
	INSERT INTO books (title, author, isbn, category, published_year, description, cover_image, total_copies)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (isbn) DO UPDATE SET
		title = EXCLUDED.title,
		author = EXCLUDED.author,
		category = EXCLUDED.category,
		published_year = EXCLUDED.published_year,
		description = EXCLUDED.description,
		cover_image = COALESCE(EXCLUDED.cover_image, books.cover_image),
		total_copies = GREATEST(EXCLUDED.total_copies, (
			SELECT COUNT(*) FROM borrowings l
			WHERE l.book_id = books.id AND l.status IN ('borrowed', 'overdue')
		))
	RETURNING id, created_at, updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, query,
		b.Title, b.Author, b.ISBN, b.Category, b.PublishedYear, b.Description, b.CoverImage, b.TotalCopies,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert book %s: %w", *b.ISBN, err)
	}
	return nil
}
