package app

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"

	"lending-library/library"
)

const dateLayout = "2006-01-02"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// printer renders results either as aligned tables or as indented JSON.
type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(w io.Writer, format string) *printer {
	return &printer{w: w, json: format == "json"}
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ok prints a green success line. JSON output stays machine readable, so it
// prints nothing there.
func (p *printer) ok(format string, a ...interface{}) {
	if p.json {
		return
	}
	fmt.Fprintln(p.w, color.GreenString("✓"), fmt.Sprintf(format, a...))
}

// header prints a cyan section heading.
func (p *printer) header(format string, a ...interface{}) {
	fmt.Fprintln(p.w, color.CyanString(fmt.Sprintf(format, a...)))
}

func (p *printer) rule(n int) {
	fmt.Fprintln(p.w, strings.Repeat("-", n))
}

// ------------------ Books ------------------

func (p *printer) book(b *library.Book) error {
	if p.json {
		return p.encode(b)
	}
	p.header("Book %d", b.ID)
	fmt.Fprintf(p.w, "  %-12s %s\n", "title:", b.Title)
	fmt.Fprintf(p.w, "  %-12s %s\n", "isbn:", b.ISBN)
	fmt.Fprintf(p.w, "  %-12s %s\n", "author:", b.Author)
	fmt.Fprintf(p.w, "  %-12s %s\n", "genre:", b.Genre)
	fmt.Fprintf(p.w, "  %-12s %s\n", "year:", yearString(b.PublicationYear))
	fmt.Fprintf(p.w, "  %-12s %s\n", "available:", availability(b.Available))
	return nil
}

func (p *printer) books(books []library.Book) error {
	if p.json {
		return p.encode(books)
	}
	if len(books) == 0 {
		fmt.Fprintln(p.w, "No books in library.")
		return nil
	}
	fmt.Fprintf(p.w, "%-5s %-30s %-18s %-25s %-6s %-15s %s\n", "ID", "Title", "ISBN", "Author", "Year", "Genre", "Available")
	p.rule(110)
	for _, b := range books {
		fmt.Fprintf(p.w, "%-5d %-30s %-18s %-25s %-6s %-15s %s\n",
			b.ID,
			truncateString(b.Title, 30),
			truncateString(b.ISBN, 18),
			truncateString(b.Author, 25),
			yearString(b.PublicationYear),
			truncateString(b.Genre, 15),
			availability(b.Available))
	}
	return nil
}

// ------------------ Members ------------------

func (p *printer) member(m *library.Member) error {
	if p.json {
		return p.encode(m)
	}
	p.header("Member %d", m.ID)
	fmt.Fprintf(p.w, "  %-12s %s\n", "name:", m.Name)
	fmt.Fprintf(p.w, "  %-12s %s\n", "email:", m.Email)
	fmt.Fprintf(p.w, "  %-12s %s\n", "phone:", m.Phone)
	fmt.Fprintf(p.w, "  %-12s %s\n", "registered:", m.RegistrationDate.Format(dateLayout))
	if pr := m.Profile; pr != nil {
		fmt.Fprintf(p.w, "  %-12s %s, %s %s\n", "address:", pr.Address, pr.PostalCode, pr.City)
		if pr.ReadingPreferences != "" {
			fmt.Fprintf(p.w, "  %-12s %s\n", "reads:", pr.ReadingPreferences)
		}
	}
	return nil
}

func (p *printer) members(members []library.Member) error {
	if p.json {
		return p.encode(members)
	}
	if len(members) == 0 {
		fmt.Fprintln(p.w, "No members registered.")
		return nil
	}
	fmt.Fprintf(p.w, "%-5s %-25s %-30s %-12s %s\n", "ID", "Name", "Email", "Registered", "City")
	p.rule(90)
	for _, m := range members {
		city := ""
		if m.Profile != nil {
			city = m.Profile.City
		}
		fmt.Fprintf(p.w, "%-5d %-25s %-30s %-12s %s\n",
			m.ID,
			truncateString(m.Name, 25),
			truncateString(m.Email, 30),
			m.RegistrationDate.Format(dateLayout),
			city)
	}
	return nil
}

// ------------------ Loans ------------------

func (p *printer) loan(l *library.LoanDetails) error {
	if p.json {
		return p.encode(l)
	}
	p.header("Loan %d  (%s)", l.ID, stateString(l.State))
	fmt.Fprintf(p.w, "  %-12s %s (ID: %d)\n", "member:", l.MemberName, l.MemberID)
	fmt.Fprintf(p.w, "  %-12s %s (ID: %d)\n", "book:", l.BookTitle, l.BookID)
	fmt.Fprintf(p.w, "  %-12s %s\n", "lent:", l.LoanDate.Format(dateLayout))
	fmt.Fprintf(p.w, "  %-12s %s\n", "returned:", returnString(l.ReturnDate))
	return nil
}

func (p *printer) loans(loans []library.LoanDetails) error {
	if p.json {
		return p.encode(loans)
	}
	if len(loans) == 0 {
		fmt.Fprintln(p.w, "No loans found.")
		return nil
	}
	fmt.Fprintf(p.w, "%-5s %-25s %-30s %-12s %-12s %s\n", "ID", "Member", "Book", "Lent", "Returned", "State")
	p.rule(100)
	for _, l := range loans {
		fmt.Fprintf(p.w, "%-5d %-25s %-30s %-12s %-12s %s\n",
			l.ID,
			truncateString(l.MemberName, 25),
			truncateString(l.BookTitle, 30),
			l.LoanDate.Format(dateLayout),
			returnString(l.ReturnDate),
			stateString(l.State))
	}
	return nil
}

func availability(ok bool) string {
	if ok {
		return color.GreenString("Yes")
	}
	return color.YellowString("No")
}

func stateString(s library.LoanState) string {
	if s == library.LoanActive {
		return color.YellowString(string(s))
	}
	return string(s)
}

func yearString(y *int) string {
	if y == nil {
		return "-"
	}
	return strconv.Itoa(*y)
}

func returnString(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
