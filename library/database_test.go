package library

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempDB(t *testing.T) *Database {
	t.Helper()
	dir := t.TempDir()
	db, err := NewDatabase(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("new db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedMember(t *testing.T, r Records, name, email string) *Member {
	t.Helper()
	m, err := r.SaveMember(context.Background(), &Member{
		Name:             name,
		Email:            email,
		RegistrationDate: dateOf(time.Now()),
	})
	require.NoError(t, err, "seed member %s", name)
	return m
}

func seedBook(t *testing.T, r Records, title, isbn string) *Book {
	t.Helper()
	b, err := r.SaveBook(context.Background(), &Book{
		Title:     title,
		ISBN:      isbn,
		Author:    "Author",
		Genre:     "Fiction",
		Available: true,
	})
	require.NoError(t, err, "seed book %s", title)
	return b
}

func day(t time.Time) string { return t.Format("2006-01-02") }

func Test_NewDatabase_ReopenKeepsDataAndSchema(t *testing.T) {
	// setup
	path := filepath.Join(t.TempDir(), "nested", "library.db")
	db, err := NewDatabase(path)
	require.NoError(t, err)
	book := seedBook(t, db, "Dune", "978-0")
	require.NoError(t, db.Close())

	// act
	reopened, err := NewDatabase(path)
	require.NoError(t, err)
	t.Cleanup(func() { reopened.Close() })

	// assert
	got, err := reopened.FindBookByID(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dune", got.Title)
	assert.Equal(t, DriverSQLite, reopened.Driver())
}

func Test_NewDatabase_RejectsUnknownDriver(t *testing.T) {
	_, err := NewDatabase(filepath.Join(t.TempDir(), "x.db"), WithDriver("oracle"))
	assert.ErrorContains(t, err, "unsupported database driver")
}

func Test_Records_SaveBookInsertsThenUpdates(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	year := 1965

	inserted, err := db.SaveBook(ctx, &Book{Title: "Dune", ISBN: "978-0", Author: "Herbert", Genre: "SF", PublicationYear: &year, Available: true})
	require.NoError(t, err)
	require.NotZero(t, inserted.ID)

	inserted.Available = false
	_, err = db.SaveBook(ctx, inserted)
	require.NoError(t, err)

	got, err := db.FindBookByID(ctx, inserted.ID)
	require.NoError(t, err)
	assert.False(t, got.Available)
	require.NotNil(t, got.PublicationYear)
	assert.Equal(t, 1965, *got.PublicationYear)

	_, err = db.SaveBook(ctx, &Book{ID: 999, Title: "Ghost", ISBN: "x", Author: "a", Genre: "g"})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func Test_Records_MissingRowsReportRecordNotFound(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()

	_, err := db.FindMemberByID(ctx, 1)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = db.FindBookByISBN(ctx, "nope")
	assert.ErrorIs(t, err, ErrRecordNotFound)
	_, err = db.FindLoanByID(ctx, 1)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.ErrorIs(t, db.DeleteLoan(ctx, 1), ErrRecordNotFound)

	exists, err := db.ExistsMember(ctx, 1)
	require.NoError(t, err)
	assert.False(t, exists)
}

func Test_Records_UniqueIndexesSurfaceAsUniqueViolation(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	seedBook(t, db, "Dune", "978-0")
	seedMember(t, db, "Ana", "ana@example.com")

	_, err := db.SaveBook(ctx, &Book{Title: "Other", ISBN: "978-0", Author: "a", Genre: "g"})
	assert.ErrorIs(t, err, errUniqueViolation)

	_, err = db.SaveMember(ctx, &Member{Name: "Other", Email: "ana@example.com", RegistrationDate: time.Now()})
	assert.ErrorIs(t, err, errUniqueViolation)
}

func Test_Records_SecondActiveLoanForBookIsRejectedByIndex(t *testing.T) {
	// setup
	db := tempDB(t)
	ctx := context.Background()
	m := seedMember(t, db, "Ana", "ana@example.com")
	b := seedBook(t, db, "Dune", "978-0")
	today := dateOf(time.Now())

	_, err := db.SaveLoan(ctx, &Loan{MemberID: m.ID, BookID: b.ID, LoanDate: today, State: LoanActive})
	require.NoError(t, err)

	// act
	_, err = db.SaveLoan(ctx, &Loan{MemberID: m.ID, BookID: b.ID, LoanDate: today, State: LoanActive})

	// assert
	assert.ErrorIs(t, err, errUniqueViolation)

	// a returned loan for the same book is fine
	_, err = db.SaveLoan(ctx, &Loan{MemberID: m.ID, BookID: b.ID, LoanDate: today, ReturnDate: &today, State: LoanReturned})
	assert.NoError(t, err)
}

func Test_Records_ListBooksFilters(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	a := seedBook(t, db, "A", "1")
	b := seedBook(t, db, "B", "2")
	b.Available = false
	b.Genre = "Poetry"
	_, err := db.SaveBook(ctx, b)
	require.NoError(t, err)

	available := true
	unavailable := false

	tests := []struct {
		name   string
		filter BookFilter
		want   []int64
	}{
		{"all", BookFilter{}, []int64{a.ID, b.ID}},
		{"available", BookFilter{Available: &available}, []int64{a.ID}},
		{"unavailable", BookFilter{Available: &unavailable}, []int64{b.ID}},
		{"genre", BookFilter{Genre: "Poetry"}, []int64{b.ID}},
		{"author", BookFilter{Author: "Author"}, []int64{a.ID, b.ID}},
		{"no match", BookFilter{Author: "Nobody"}, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			books, err := db.ListBooks(ctx, tc.filter)
			require.NoError(t, err)
			var ids []int64
			for _, bk := range books {
				ids = append(ids, bk.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func Test_Records_DeleteLoansRequiresFilter(t *testing.T) {
	db := tempDB(t)
	_, err := db.DeleteLoans(context.Background(), LoanFilter{})
	assert.ErrorContains(t, err, "empty filter")
}

func Test_RunInTx_RollsBackOnError(t *testing.T) {
	// setup
	db := tempDB(t)
	ctx := context.Background()
	b := seedBook(t, db, "Dune", "978-0")
	boom := errors.New("boom")

	// act
	err := db.RunInTx(ctx, func(tx Records) error {
		b.Available = false
		if _, err := tx.SaveBook(ctx, b); err != nil {
			return err
		}
		seedMember(t, tx, "Ana", "ana@example.com")
		return boom
	})

	// assert
	assert.ErrorIs(t, err, boom)
	got, err := db.FindBookByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.Available, "book write must be rolled back")
	members, err := db.ListMembers(ctx)
	require.NoError(t, err)
	assert.Empty(t, members, "member insert must be rolled back")
}

func Test_Records_LoanDatesRoundTrip(t *testing.T) {
	db := tempDB(t)
	ctx := context.Background()
	m := seedMember(t, db, "Ana", "ana@example.com")
	b := seedBook(t, db, "Dune", "978-0")
	loanDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	returnDate := time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC)

	saved, err := db.SaveLoan(ctx, &Loan{MemberID: m.ID, BookID: b.ID, LoanDate: loanDate, ReturnDate: &returnDate, State: LoanReturned})
	require.NoError(t, err)

	got, err := db.FindLoanByID(ctx, saved.ID)
	require.NoError(t, err)
	assert.True(t, got.LoanDate.Equal(loanDate), "loan date %v", got.LoanDate)
	require.NotNil(t, got.ReturnDate)
	assert.True(t, got.ReturnDate.Equal(returnDate), "return date %v", got.ReturnDate)
	assert.Equal(t, LoanReturned, got.State)
}
