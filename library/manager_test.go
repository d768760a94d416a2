package library

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T) *LibraryManager {
	dir := t.TempDir()
	mgr, err := NewLibraryManager(filepath.Join(dir, "lib.db"), nil)
	if err != nil {
		t.Fatalf("mgr: %v", err)
	}
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func Test_LibraryManager_DescribeLoans(t *testing.T) {
	// setup
	mgr := newManager(t)
	ctx := context.Background()
	ana, err := mgr.Members.CreateMember(ctx, Member{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	dune, err := mgr.Catalog.CreateBook(ctx, newBook("Dune", "1"))
	require.NoError(t, err)
	emma, err := mgr.Catalog.CreateBook(ctx, newBook("Emma", "2"))
	require.NoError(t, err)
	l1, err := mgr.Loans.CreateLoan(ctx, ana.ID, dune.ID)
	require.NoError(t, err)
	_, err = mgr.Loans.CreateLoan(ctx, ana.ID, emma.ID)
	require.NoError(t, err)

	// act
	single, err := mgr.DescribeLoan(ctx, l1)
	require.NoError(t, err)
	active, err := mgr.ActiveLoansWithDetails(ctx, ana.ID)
	require.NoError(t, err)

	// assert
	assert.Equal(t, "Ana", single.MemberName)
	assert.Equal(t, "Dune", single.BookTitle)
	assert.Equal(t, l1.ID, single.ID)

	require.Len(t, active, 2)
	assert.Equal(t, "Dune", active[0].BookTitle)
	assert.Equal(t, "Emma", active[1].BookTitle)
	assert.Equal(t, DriverSQLite, mgr.Driver())
}

func Test_LibraryManager_DescribeLoanOfUnknownRefsLeavesBlanks(t *testing.T) {
	mgr := newManager(t)

	d, err := mgr.DescribeLoan(context.Background(), &Loan{ID: 9, MemberID: 1, BookID: 1, State: LoanActive})

	require.NoError(t, err)
	assert.Empty(t, d.MemberName)
	assert.Empty(t, d.BookTitle)
}
