package library

import "time"

// Book is a catalog entry. There is exactly one physical copy per record, so
// Available doubles as "not currently on loan".
type Book struct {
	ID              int64  `json:"id" db:"id"`
	Title           string `json:"title" db:"title"`
	ISBN            string `json:"isbn" db:"isbn"`
	Author          string `json:"author" db:"author"`
	PublicationYear *int   `json:"publication_year,omitempty" db:"publication_year"`
	Genre           string `json:"genre" db:"genre"`
	Available       bool   `json:"available" db:"available"`
}

// Member represents a registered library member.
type Member struct {
	ID               int64     `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Email            string    `json:"email" db:"email"`
	Phone            string    `json:"phone" db:"phone"`
	RegistrationDate time.Time `json:"registration_date" db:"registration_date"`

	// Profile is loaded by the member manager; the profiles table owns the link.
	Profile *Profile `json:"profile,omitempty" db:"-"`
}

// Profile holds optional member details. At most one per member.
type Profile struct {
	ID                 int64  `json:"id" db:"id"`
	MemberID           int64  `json:"member_id" db:"member_id"`
	Address            string `json:"address" db:"address"`
	City               string `json:"city" db:"city"`
	PostalCode         string `json:"postal_code" db:"postal_code"`
	ReadingPreferences string `json:"reading_preferences" db:"reading_preferences"`
}

// LoanState is the lifecycle state of a Loan.
type LoanState string

const (
	LoanActive   LoanState = "ACTIVE"
	LoanReturned LoanState = "RETURNED"
)

// Valid reports whether s is a known state.
func (s LoanState) Valid() bool {
	return s == LoanActive || s == LoanReturned
}

// Loan assigns one book to one member. MemberID and BookID never change after
// creation.
type Loan struct {
	ID         int64      `json:"id" db:"id"`
	MemberID   int64      `json:"member_id" db:"member_id"`
	BookID     int64      `json:"book_id" db:"book_id"`
	LoanDate   time.Time  `json:"loan_date" db:"loan_date"`
	ReturnDate *time.Time `json:"return_date,omitempty" db:"return_date"`
	State      LoanState  `json:"state" db:"state"`
}

// LoanDetails is a loan joined with the names shown next to it. It is built
// on read and never stored.
type LoanDetails struct {
	Loan
	MemberName string `json:"member_name"`
	BookTitle  string `json:"book_title"`
}

// BookFilter narrows ListBooks. Zero fields match everything.
type BookFilter struct {
	Available *bool
	Genre     string
	Author    string
}

// LoanFilter narrows ListLoans. Zero fields match everything.
type LoanFilter struct {
	MemberID int64
	BookID   int64
	State    LoanState
}

// dateOf truncates t to its calendar day, expressed as midnight UTC.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
