package library

import "context"

// Records is the keyed read/write surface of the record store. Lookups by id
// return ErrRecordNotFound when no row matches.
type Records interface {
	FindMemberByID(ctx context.Context, id int64) (*Member, error)
	ExistsMember(ctx context.Context, id int64) (bool, error)
	FindMemberByEmail(ctx context.Context, email string) (*Member, error)
	ListMembers(ctx context.Context) ([]Member, error)
	SaveMember(ctx context.Context, m *Member) (*Member, error)
	DeleteMember(ctx context.Context, id int64) error

	FindProfileByMember(ctx context.Context, memberID int64) (*Profile, error)
	SaveProfile(ctx context.Context, p *Profile) (*Profile, error)
	DeleteProfileByMember(ctx context.Context, memberID int64) error

	FindBookByID(ctx context.Context, id int64) (*Book, error)
	FindBookByISBN(ctx context.Context, isbn string) (*Book, error)
	ListBooks(ctx context.Context, f BookFilter) ([]Book, error)
	SaveBook(ctx context.Context, b *Book) (*Book, error)
	DeleteBook(ctx context.Context, id int64) error

	FindLoanByID(ctx context.Context, id int64) (*Loan, error)
	FindLoansByMemberAndState(ctx context.Context, memberID int64, state LoanState) ([]Loan, error)
	ListLoans(ctx context.Context, f LoanFilter) ([]Loan, error)
	SaveLoan(ctx context.Context, l *Loan) (*Loan, error)
	DeleteLoan(ctx context.Context, id int64) error
	DeleteLoans(ctx context.Context, f LoanFilter) (int64, error)
}

// Store is a Records that can run a group of reads and writes as one atomic
// unit. RunInTx commits when fn returns nil and rolls back otherwise; rows
// fn reads for later writing are held exclusively until it returns.
type Store interface {
	Records
	RunInTx(ctx context.Context, fn func(tx Records) error) error
}
