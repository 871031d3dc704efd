package loan

import "time"

// decideBorrow checks the borrow preconditions in order and builds the new loan.
func decideBorrow(st BorrowState, bookID, borrowerID string, now time.Time, period time.Duration) (Loan, error) {
	switch {
	case !st.BookFound:
		return Loan{}, ErrBookNotFound
	case !st.BorrowerFound:
		return Loan{}, ErrBorrowerNotFound
	case st.Available() <= 0:
		return Loan{}, ErrUnavailable
	case st.BorrowerHasOpenLoan:
		return Loan{}, ErrDuplicateLoan
	}

	book := st.Book
	return Loan{
		BookID:     bookID,
		UserID:     borrowerID,
		BorrowDate: now,
		DueDate:    now.Add(period),
		Status:     StatusBorrowed,
		Book:       &book,
	}, nil
}

// markReturned closes an open loan. Returned is terminal.
func markReturned(l *Loan, now time.Time) error {
	if l.Status == StatusReturned {
		return ErrAlreadyReturned
	}
	l.ReturnDate = &now
	l.Status = StatusReturned
	return nil
}

// extendDue pushes the due date out by days and clears an overdue flag.
func extendDue(l *Loan, days int) error {
	if l.Status == StatusReturned {
		return ErrCannotExtendReturned
	}
	if days < 1 || days > MaxExtensionDays {
		return ErrInvalidDays
	}
	l.DueDate = l.DueDate.Add(time.Duration(days) * 24 * time.Hour)
	l.Status = StatusBorrowed
	return nil
}

// pastDue reports whether the sweep would move l to overdue at asOf.
func pastDue(l Loan, asOf time.Time) bool {
	return l.Status == StatusBorrowed && l.DueDate.Before(asOf)
}
