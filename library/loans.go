package library

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
)

// LoanEngine owns the loan lifecycle: ACTIVE on creation, RETURNED on return,
// nothing after that. Every write it makes changes a book's availability and a
// loan together inside one store transaction, so a book is never lent twice
// and never left unavailable without an active loan.
type LoanEngine struct {
	store Store
	settings
}

// NewLoanEngine returns an engine over store.
func NewLoanEngine(store Store, opts ...Option) *LoanEngine {
	return &LoanEngine{store: store, settings: newSettings(opts)}
}

// CreateLoan lends bookID to memberID. The member must exist, then the book
// must exist, then it must be available; each failure is reported as its own
// error and leaves every record untouched.
func (e *LoanEngine) CreateLoan(ctx context.Context, memberID, bookID int64) (*Loan, error) {
	ctx, span := e.startSpan(ctx, spanCreateLoan,
		attribute.Int64(attrMemberID, memberID),
		attribute.Int64(attrBookID, bookID))

	var loan *Loan
	err := e.store.RunInTx(ctx, func(tx Records) error {
		if _, err := tx.FindMemberByID(ctx, memberID); err != nil {
			return orNotFound(err, memberErr(memberID, ErrMemberNotFound))
		}

		book, err := tx.FindBookByID(ctx, bookID)
		if err != nil {
			return orNotFound(err, bookErr(bookID, ErrBookNotFound))
		}
		if !book.Available {
			return bookErr(bookID, ErrBookUnavailable)
		}

		book.Available = false
		if _, err := tx.SaveBook(ctx, book); err != nil {
			return err
		}

		loan, err = tx.SaveLoan(ctx, &Loan{
			MemberID: memberID,
			BookID:   bookID,
			LoanDate: e.today(),
			State:    LoanActive,
		})
		if errors.Is(err, errUniqueViolation) {
			return bookErr(bookID, ErrBookUnavailable)
		}
		return err
	})
	if err != nil {
		loan = nil
	}

	args := []any{attrMemberID, memberID, attrBookID, bookID}
	if loan != nil {
		span.SetAttributes(attribute.Int64(attrLoanID, loan.ID))
		args = append(args, attrLoanID, loan.ID)
	}
	e.finish(ctx, span, spanCreateLoan, err, args...)
	return loan, err
}

// ReturnLoan closes an active loan and makes its book available again.
// Returning a loan twice is an error, not a no-op.
func (e *LoanEngine) ReturnLoan(ctx context.Context, loanID int64) (*Loan, error) {
	ctx, span := e.startSpan(ctx, spanReturnLoan, attribute.Int64(attrLoanID, loanID))

	var loan *Loan
	err := e.store.RunInTx(ctx, func(tx Records) error {
		current, err := tx.FindLoanByID(ctx, loanID)
		if err != nil {
			return orNotFound(err, loanErr(loanID, ErrLoanNotFound))
		}
		if current.State != LoanActive {
			return loanErr(loanID, ErrLoanAlreadyReturned)
		}

		if err := e.releaseBook(ctx, tx, current.BookID); err != nil {
			return err
		}

		today := e.today()
		if today.Before(current.LoanDate) {
			// A clock behind the loan date would break returnDate >= loanDate.
			today = current.LoanDate
		}
		current.State = LoanReturned
		current.ReturnDate = &today
		loan, err = tx.SaveLoan(ctx, current)
		return err
	})
	if err != nil {
		loan = nil
	}

	e.finish(ctx, span, spanReturnLoan, err, attrLoanID, loanID)
	return loan, err
}

// DeleteLoan removes a loan record. An active loan releases its book first;
// a returned loan is removed without touching the book.
func (e *LoanEngine) DeleteLoan(ctx context.Context, loanID int64) error {
	ctx, span := e.startSpan(ctx, spanDeleteLoan, attribute.Int64(attrLoanID, loanID))

	err := e.store.RunInTx(ctx, func(tx Records) error {
		current, err := tx.FindLoanByID(ctx, loanID)
		if err != nil {
			return orNotFound(err, loanErr(loanID, ErrLoanNotFound))
		}
		if current.State == LoanActive {
			if err := e.releaseBook(ctx, tx, current.BookID); err != nil {
				return err
			}
		}
		return orNotFound(tx.DeleteLoan(ctx, loanID), loanErr(loanID, ErrLoanNotFound))
	})

	e.finish(ctx, span, spanDeleteLoan, err, attrLoanID, loanID)
	return err
}

// ListActiveLoansForMember returns the member's active loans in creation
// order, as of the moment of the call.
func (e *LoanEngine) ListActiveLoansForMember(ctx context.Context, memberID int64) ([]Loan, error) {
	ctx, span := e.startSpan(ctx, spanListActive, attribute.Int64(attrMemberID, memberID))

	loans, err := e.listActive(ctx, memberID)

	span.SetAttributes(attribute.Int("library.loan_count", len(loans)))
	e.finish(ctx, span, spanListActive, err, attrMemberID, memberID)
	return loans, err
}

func (e *LoanEngine) listActive(ctx context.Context, memberID int64) ([]Loan, error) {
	exists, err := e.store.ExistsMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, memberErr(memberID, ErrMemberNotFound)
	}
	return e.store.FindLoansByMemberAndState(ctx, memberID, LoanActive)
}

// GetLoan fetches a single loan.
func (e *LoanEngine) GetLoan(ctx context.Context, loanID int64) (*Loan, error) {
	loan, err := e.store.FindLoanByID(ctx, loanID)
	if err != nil {
		return nil, orNotFound(err, loanErr(loanID, ErrLoanNotFound))
	}
	return loan, nil
}

// ListLoans returns loans matching f in creation order.
func (e *LoanEngine) ListLoans(ctx context.Context, f LoanFilter) ([]Loan, error) {
	if f.State != "" && !f.State.Valid() {
		return nil, invalid("state", "must be ACTIVE or RETURNED")
	}
	return e.store.ListLoans(ctx, f)
}

// releaseBook marks the loaned book available again. The loan references the
// book through a foreign key, so a missing book is a store failure.
func (e *LoanEngine) releaseBook(ctx context.Context, tx Records, bookID int64) error {
	book, err := tx.FindBookByID(ctx, bookID)
	if err != nil {
		return err
	}
	book.Available = true
	_, err = tx.SaveBook(ctx, book)
	return err
}

// orNotFound replaces a store miss with the domain error nf and passes every
// other error through unchanged.
func orNotFound(err, nf error) error {
	if errors.Is(err, ErrRecordNotFound) {
		return nf
	}
	return err
}
