package library

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the managers and the loan engine for a
// rejected request wraps exactly one of these; store failures wrap none.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrInvalid  = errors.New("invalid")
)

var (
	ErrMemberNotFound = fmt.Errorf("member %w", ErrNotFound)
	ErrBookNotFound   = fmt.Errorf("book %w", ErrNotFound)
	ErrLoanNotFound   = fmt.Errorf("loan %w", ErrNotFound)

	ErrBookUnavailable      = fmt.Errorf("book unavailable for loan: %w", ErrConflict)
	ErrLoanAlreadyReturned  = fmt.Errorf("loan already returned: %w", ErrConflict)
	ErrDuplicateISBN        = fmt.Errorf("isbn already registered: %w", ErrConflict)
	ErrDuplicateEmail       = fmt.Errorf("email already registered: %w", ErrConflict)
	ErrBookOnLoan           = fmt.Errorf("book is on loan: %w", ErrConflict)
	ErrMemberHasActiveLoans = fmt.Errorf("member has active loans: %w", ErrConflict)
)

// ErrRecordNotFound is returned by the store when a keyed lookup matches no row.
var ErrRecordNotFound = errors.New("record not found")

// errUniqueViolation is returned by the store when a write hits a unique
// index. The caller decides which conflict it means.
var errUniqueViolation = errors.New("unique constraint violated")

func bookErr(id int64, err error) error   { return fmt.Errorf("book %d: %w", id, err) }
func memberErr(id int64, err error) error { return fmt.Errorf("member %d: %w", id, err) }
func loanErr(id int64, err error) error   { return fmt.Errorf("loan %d: %w", id, err) }

func invalid(field, reason string) error {
	return fmt.Errorf("%s %s: %w", field, reason, ErrInvalid)
}
