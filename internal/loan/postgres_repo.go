package loan

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

const selectByIDSQL = `
	SELECT l.id, l.book_id, l.user_id, l.borrow_date, l.due_date, l.return_date, l.status,
	       l.created_at, l.updated_at, b.title, b.author
	FROM borrowings l
	JOIN books b ON b.id = l.book_id
	WHERE l.id = $1`

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

func scanLoan(row pgx.Row, l *Loan) error {
	var title, author string
	err := row.Scan(
		&l.ID, &l.BookID, &l.UserID, &l.BorrowDate, &l.DueDate, &l.ReturnDate, &l.Status,
		&l.CreatedAt, &l.UpdatedAt, &title, &author,
	)
	if err != nil {
		return err
	}
	l.Book = &BookSummary{ID: l.BookID, Title: title, Author: author}
	return nil
}

// Borrow locks the book row, gathers the borrow state and inserts the loan
// decide returns. Concurrent borrows of one book queue on the lock, so each
// sees the loans committed before it.
func (r *PostgresRepo) Borrow(ctx context.Context, bookID, borrowerID string, decide func(BorrowState) (Loan, error)) (Loan, error) {
	if !postgres.ValidUUID(bookID) {
		return decide(BorrowState{})
	}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var out Loan
	err := pgx.BeginTxFunc(timeoutCtx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		st, err := readBorrowState(timeoutCtx, tx, bookID, borrowerID)
		if err != nil {
			return err
		}
		l, err := decide(st)
		if err != nil {
			return err
		}

		const insert = `
		INSERT INTO borrowings (book_id, user_id, borrow_date, due_date, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
		`
		err = tx.QueryRow(timeoutCtx, insert, l.BookID, l.UserID, l.BorrowDate, l.DueDate, l.Status).
			Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
		if err != nil {
			switch {
			case postgres.IsUniqueViolation(err):
				return ErrDuplicateLoan
			case postgres.IsForeignKeyViolation(err):
				return ErrBorrowerNotFound
			}
			return fmt.Errorf("insert loan: %w", err)
		}
		out = l
		return nil
	})
	if err != nil {
		return Loan{}, err
	}
	return out, nil
}

func readBorrowState(ctx context.Context, tx pgx.Tx, bookID, borrowerID string) (BorrowState, error) {
	var st BorrowState

	err := tx.QueryRow(ctx,
		`SELECT id, title, author, total_copies FROM books WHERE id = $1 FOR UPDATE`, bookID,
	).Scan(&st.Book.ID, &st.Book.Title, &st.Book.Author, &st.TotalCopies)
	if errors.Is(err, pgx.ErrNoRows) {
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("lock book: %w", err)
	}
	st.BookFound = true

	// Separate statement: under READ COMMITTED it takes a snapshot after the lock was granted.
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM borrowings WHERE book_id = $1 AND status IN ('borrowed', 'overdue')`, bookID,
	).Scan(&st.OpenLoans)
	if err != nil {
		return st, fmt.Errorf("count open loans: %w", err)
	}

	if !postgres.ValidUUID(borrowerID) {
		return st, nil
	}
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $2),
		       EXISTS (SELECT 1 FROM borrowings WHERE book_id = $1 AND user_id = $2 AND status IN ('borrowed', 'overdue'))`,
		bookID, borrowerID,
	).Scan(&st.BorrowerFound, &st.BorrowerHasOpenLoan)
	if err != nil {
		return st, fmt.Errorf("check borrower: %w", err)
	}
	return st, nil
}

func (r *PostgresRepo) getByID(ctx context.Context, q queryer, id string, forUpdate bool) (Loan, error) {
	query := selectByIDSQL
	if forUpdate {
		query += " FOR UPDATE OF l"
	}
	var l Loan
	if err := scanLoan(q.QueryRow(ctx, query, id), &l); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Loan{}, ErrNotFound
		}
		return Loan{}, fmt.Errorf("get loan: %w", err)
	}
	return l, nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Loan, error) {
	if !postgres.ValidUUID(id) {
		return Loan{}, ErrNotFound
	}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return r.getByID(timeoutCtx, r.db, id, false)
}

// Update loads the loan under a row lock, applies mutate and writes back the
// mutable fields (due date, return date, status).
func (r *PostgresRepo) Update(ctx context.Context, id string, mutate func(*Loan) error) (Loan, error) {
	if !postgres.ValidUUID(id) {
		return Loan{}, ErrNotFound
	}
	const query = `
	UPDATE borrowings
	SET due_date = $2, return_date = $3, status = $4
	WHERE id = $1
	RETURNING updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var out Loan
	err := pgx.BeginTxFunc(timeoutCtx, r.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		l, err := r.getByID(timeoutCtx, tx, id, true)
		if err != nil {
			return err
		}
		if err := mutate(&l); err != nil {
			return err
		}
		if err := tx.QueryRow(timeoutCtx, query, id, l.DueDate, l.ReturnDate, l.Status).Scan(&l.UpdatedAt); err != nil {
			return fmt.Errorf("update loan: %w", err)
		}
		out = l
		return nil
	})
	if err != nil {
		return Loan{}, err
	}
	return out, nil
}

// MarkOverdue moves every borrowed loan due before asOf to overdue.
func (r *PostgresRepo) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(timeoutCtx,
		`UPDATE borrowings SET status = 'overdue' WHERE status = 'borrowed' AND due_date < $1`, asOf,
	)
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Loan, error) {
	ds := goqu.Dialect(dialect).
		From(goqu.T("borrowings").As("l")).
		Join(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("l.book_id")))).
		Select(
			goqu.I("l.id"), goqu.I("l.book_id"), goqu.I("l.user_id"), goqu.I("l.borrow_date"),
			goqu.I("l.due_date"), goqu.I("l.return_date"), goqu.I("l.status"),
			goqu.I("l.created_at"), goqu.I("l.updated_at"), goqu.I("b.title"), goqu.I("b.author"),
		)

	if q.UserID != "" {
		if !postgres.ValidUUID(q.UserID) {
			return []Loan{}, nil
		}
		ds = ds.Where(goqu.I("l.user_id").Eq(q.UserID))
	}
	if q.BookID != "" {
		if !postgres.ValidUUID(q.BookID) {
			return []Loan{}, nil
		}
		ds = ds.Where(goqu.I("l.book_id").Eq(q.BookID))
	}
	if q.Status != "" {
		ds = ds.Where(goqu.I("l.status").Eq(string(q.Status)))
	}
	ds = ds.Order(goqu.I("l.borrow_date").Desc(), goqu.I("l.id").Asc())
	if q.Limit > 0 {
		ds = ds.Limit(uint(q.Limit))
	}
	if q.Offset > 0 {
		ds = ds.Offset(uint(q.Offset))
	}

	query, args, err := ds.Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build loan list query: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Query(timeoutCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	out := make([]Loan, 0)
	for rows.Next() {
		var l Loan
		if err := scanLoan(rows, &l); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return out, nil
}

func (r *PostgresRepo) Stats(ctx context.Context, userID string) (Stats, error) {
	var s Stats
	if !postgres.ValidUUID(userID) {
		return s, nil
	}
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	err := r.db.QueryRow(timeoutCtx, `
		SELECT COUNT(*) FILTER (WHERE status = 'borrowed'),
		       COUNT(*) FILTER (WHERE status = 'overdue')
		FROM borrowings
		WHERE user_id = $1`, userID,
	).Scan(&s.CurrentBorrowed, &s.Overdue)
	if err != nil {
		return Stats{}, fmt.Errorf("loan stats: %w", err)
	}
	return s, nil
}
