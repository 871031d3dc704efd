package loan

import (
	"context"
	"time"

	"libraryapi/internal/identity"
	"libraryapi/internal/platform/postgres"
	"libraryapi/internal/platform/retry"
)

// Service implements the loan lifecycle: borrow, return, extend and the overdue sweep.
type Service struct {
	repo       Repository
	loanPeriod time.Duration
	now        func() time.Time
	retryOpts  []retry.Option
}

// Option configures a Service.
type Option func(*Service)

// WithLoanPeriod sets the time from borrow to due date.
func WithLoanPeriod(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.loanPeriod = d
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRetryOptions tunes how transactions that lost a serialization race are re-run.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(s *Service) {
		s.retryOpts = append(s.retryOpts, opts...)
	}
}

// NewService creates a new loan service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		loanPeriod: DefaultLoanPeriod,
		now:        time.Now,
		retryOpts:  []retry.Option{retry.WithRetryIf(postgres.IsTransient)},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) withRetry(ctx context.Context, fn retry.Func) error {
	return retry.Do(ctx, fn, s.retryOpts...)
}

// Borrow lends one copy of bookID to borrowerID. An empty borrowerID means
// the actor borrows for themselves; only staff may borrow for someone else.
//
// Preconditions are checked in order: the book exists, the borrower exists,
// a copy is free, the borrower has no open loan for the book.
func (s *Service) Borrow(ctx context.Context, actor identity.Actor, bookID, borrowerID string) (Loan, error) {
	if borrowerID == "" {
		borrowerID = actor.ID
	}
	if err := actor.RequireSelfOrStaff(borrowerID); err != nil {
		return Loan{}, err
	}

	var out Loan
	err := s.withRetry(ctx, func(ctx context.Context) error {
		now := s.now().UTC()
		l, err := s.repo.Borrow(ctx, bookID, borrowerID, func(st BorrowState) (Loan, error) {
			return decideBorrow(st, bookID, borrowerID, now, s.loanPeriod)
		})
		if err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return Loan{}, err
	}
	return out, nil
}

// Return closes a loan. Students may only return their own loans.
func (s *Service) Return(ctx context.Context, actor identity.Actor, id string) (Loan, error) {
	return s.update(ctx, id, func(l *Loan) error {
		if err := actor.RequireSelfOrStaff(l.UserID); err != nil {
			return err
		}
		return markReturned(l, s.now().UTC())
	})
}

// Extend moves the due date days into the future and clears an overdue
// status. The due date never moves backwards.
func (s *Service) Extend(ctx context.Context, actor identity.Actor, id string, days int) (Loan, error) {
	if days < 1 || days > MaxExtensionDays {
		return Loan{}, ErrInvalidDays
	}
	return s.update(ctx, id, func(l *Loan) error {
		if err := actor.RequireSelfOrStaff(l.UserID); err != nil {
			return err
		}
		return extendDue(l, days)
	})
}

func (s *Service) update(ctx context.Context, id string, mutate func(*Loan) error) (Loan, error) {
	var out Loan
	err := s.withRetry(ctx, func(ctx context.Context) error {
		l, err := s.repo.Update(ctx, id, mutate)
		if err != nil {
			return err
		}
		out = l
		return nil
	})
	if err != nil {
		return Loan{}, err
	}
	return out, nil
}

// SweepOverdue marks every borrowed loan due before asOf as overdue and
// returns how many changed. A zero asOf means now. Re-running is harmless.
func (s *Service) SweepOverdue(ctx context.Context, actor identity.Actor, asOf time.Time) (int, error) {
	if err := actor.RequireStaff(); err != nil {
		return 0, err
	}
	if asOf.IsZero() {
		asOf = s.now()
	}

	var n int
	err := s.withRetry(ctx, func(ctx context.Context) error {
		var err error
		n, err = s.repo.MarkOverdue(ctx, asOf.UTC())
		return err
	})
	return n, err
}

// Get returns a single loan visible to the actor.
func (s *Service) Get(ctx context.Context, actor identity.Actor, id string) (Loan, error) {
	l, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Loan{}, err
	}
	if !actor.CanActFor(l.UserID) {
		// Other borrowers' loans are indistinguishable from missing ones.
		return Loan{}, ErrNotFound
	}
	return l, nil
}

// ListLoans returns loans across all borrowers, newest first. Staff only.
func (s *Service) ListLoans(ctx context.Context, actor identity.Actor, q Query) ([]Loan, error) {
	if err := actor.RequireStaff(); err != nil {
		return nil, err
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.List(ctx, q)
}

// ListLoansForUser returns one borrower's loans, newest first.
func (s *Service) ListLoansForUser(ctx context.Context, actor identity.Actor, userID string, q Query) ([]Loan, error) {
	if err := actor.RequireSelfOrStaff(userID); err != nil {
		return nil, err
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	q.UserID = userID
	return s.repo.List(ctx, q)
}

// BorrowingStats counts a borrower's loans that are currently borrowed or overdue.
func (s *Service) BorrowingStats(ctx context.Context, actor identity.Actor, userID string) (Stats, error) {
	if err := actor.RequireSelfOrStaff(userID); err != nil {
		return Stats{}, err
	}
	return s.repo.Stats(ctx, userID)
}
