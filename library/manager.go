package library

import (
	"context"
	"errors"
)

// LibraryManager is a thin façade over the Database, keeping CLI code simple.
// It owns the store and hands out the three components that operate on it.
type LibraryManager struct {
	db *Database

	Catalog *CatalogManager
	Members *MemberManager
	Loans   *LoanEngine
}

// NewLibraryManager opens (or creates) the database at dsn and wires the
// catalog, member and loan components over it.
func NewLibraryManager(dsn string, dbOpts []DBOption, opts ...Option) (*LibraryManager, error) {
	db, err := NewDatabase(dsn, dbOpts...)
	if err != nil {
		return nil, err
	}
	return &LibraryManager{
		db:      db,
		Catalog: NewCatalogManager(db, opts...),
		Members: NewMemberManager(db, opts...),
		Loans:   NewLoanEngine(db, opts...),
	}, nil
}

// Close closes the underlying database.
func (lm *LibraryManager) Close() error { return lm.db.Close() }

// Driver reports the SQL backend in use.
func (lm *LibraryManager) Driver() string { return lm.db.Driver() }

// ------------------ Loan enrichment ------------------

// DescribeLoan joins a loan with its member's name and its book's title.
func (lm *LibraryManager) DescribeLoan(ctx context.Context, loan *Loan) (*LoanDetails, error) {
	details, err := lm.DescribeLoans(ctx, []Loan{*loan})
	if err != nil {
		return nil, err
	}
	return &details[0], nil
}

// DescribeLoans enriches a batch of loans, looking each member and book up
// once. A reference that no longer resolves is left blank.
func (lm *LibraryManager) DescribeLoans(ctx context.Context, loans []Loan) ([]LoanDetails, error) {
	memberNames := map[int64]string{}
	bookTitles := map[int64]string{}

	out := make([]LoanDetails, 0, len(loans))
	for _, l := range loans {
		name, ok := memberNames[l.MemberID]
		if !ok {
			m, err := lm.db.FindMemberByID(ctx, l.MemberID)
			if err != nil && !errors.Is(err, ErrRecordNotFound) {
				return nil, err
			}
			if m != nil {
				name = m.Name
			}
			memberNames[l.MemberID] = name
		}

		title, ok := bookTitles[l.BookID]
		if !ok {
			b, err := lm.db.FindBookByID(ctx, l.BookID)
			if err != nil && !errors.Is(err, ErrRecordNotFound) {
				return nil, err
			}
			if b != nil {
				title = b.Title
			}
			bookTitles[l.BookID] = title
		}

		out = append(out, LoanDetails{Loan: l, MemberName: name, BookTitle: title})
	}
	return out, nil
}

// ActiveLoansWithDetails lists a member's active loans ready for display.
func (lm *LibraryManager) ActiveLoansWithDetails(ctx context.Context, memberID int64) ([]LoanDetails, error) {
	loans, err := lm.Loans.ListActiveLoansForMember(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return lm.DescribeLoans(ctx, loans)
}
