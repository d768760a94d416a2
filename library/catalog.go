package library

import (
	"context"
	"errors"
	"strings"
)

const minPublicationYear = 1000

// BookUpdate carries the editable fields of a book. Availability is owned by
// the loan engine and cannot be edited here.
type BookUpdate struct {
	Title           string
	ISBN            string
	Author          string
	PublicationYear *int
	Genre           string
}

// CatalogManager is guarded CRUD over books with ISBN uniqueness.
type CatalogManager struct {
	store Store
	settings
}

// NewCatalogManager returns a catalog manager over store.
func NewCatalogManager(store Store, opts ...Option) *CatalogManager {
	return &CatalogManager{store: store, settings: newSettings(opts)}
}

// CreateBook registers a new, available book.
func (c *CatalogManager) CreateBook(ctx context.Context, b Book) (*Book, error) {
	b.ID = 0
	b.Available = true
	trimBook(&b)
	if err := validateBook(b.Title, b.ISBN, b.Author, b.Genre, b.PublicationYear); err != nil {
		return nil, err
	}

	var created *Book
	err := c.store.RunInTx(ctx, func(tx Records) error {
		if err := isbnFree(ctx, tx, b.ISBN); err != nil {
			return err
		}
		saved, err := tx.SaveBook(ctx, &b)
		if errors.Is(err, errUniqueViolation) {
			return ErrDuplicateISBN
		}
		created = saved
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.InfoContext(ctx, "book created", attrBookID, created.ID, "isbn", created.ISBN)
	return created, nil
}

// GetBook fetches a book by id.
func (c *CatalogManager) GetBook(ctx context.Context, id int64) (*Book, error) {
	b, err := c.store.FindBookByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, bookErr(id, ErrBookNotFound))
	}
	return b, nil
}

// FindBookByISBN fetches a book by its ISBN.
func (c *CatalogManager) FindBookByISBN(ctx context.Context, isbn string) (*Book, error) {
	b, err := c.store.FindBookByISBN(ctx, strings.TrimSpace(isbn))
	if err != nil {
		return nil, orNotFound(err, ErrBookNotFound)
	}
	return b, nil
}

// ListBooks returns the books matching f ordered by id.
func (c *CatalogManager) ListBooks(ctx context.Context, f BookFilter) ([]Book, error) {
	return c.store.ListBooks(ctx, f)
}

// UpdateBook replaces the editable fields of a book. The ISBN is checked for
// uniqueness only when it changes.
func (c *CatalogManager) UpdateBook(ctx context.Context, id int64, u BookUpdate) (*Book, error) {
	b := Book{Title: u.Title, ISBN: u.ISBN, Author: u.Author, Genre: u.Genre, PublicationYear: u.PublicationYear}
	trimBook(&b)
	if err := validateBook(b.Title, b.ISBN, b.Author, b.Genre, b.PublicationYear); err != nil {
		return nil, err
	}

	var updated *Book
	err := c.store.RunInTx(ctx, func(tx Records) error {
		current, err := tx.FindBookByID(ctx, id)
		if err != nil {
			return orNotFound(err, bookErr(id, ErrBookNotFound))
		}
		if current.ISBN != b.ISBN {
			if err := isbnFree(ctx, tx, b.ISBN); err != nil {
				return err
			}
		}

		b.ID = current.ID
		b.Available = current.Available
		saved, err := tx.SaveBook(ctx, &b)
		if errors.Is(err, errUniqueViolation) {
			return ErrDuplicateISBN
		}
		updated = saved
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteBook removes a book that is not on loan, together with its returned
// loans. Loans go first, then the book.
func (c *CatalogManager) DeleteBook(ctx context.Context, id int64) error {
	err := c.store.RunInTx(ctx, func(tx Records) error {
		if _, err := tx.FindBookByID(ctx, id); err != nil {
			return orNotFound(err, bookErr(id, ErrBookNotFound))
		}

		active, err := tx.ListLoans(ctx, LoanFilter{BookID: id, State: LoanActive})
		if err != nil {
			return err
		}
		if len(active) > 0 {
			return bookErr(id, ErrBookOnLoan)
		}

		if _, err := tx.DeleteLoans(ctx, LoanFilter{BookID: id, State: LoanReturned}); err != nil {
			return err
		}
		return orNotFound(tx.DeleteBook(ctx, id), bookErr(id, ErrBookNotFound))
	})
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "book deleted", attrBookID, id)
	return nil
}

func isbnFree(ctx context.Context, tx Records, isbn string) error {
	_, err := tx.FindBookByISBN(ctx, isbn)
	switch {
	case err == nil:
		return ErrDuplicateISBN
	case errors.Is(err, ErrRecordNotFound):
		return nil
	default:
		return err
	}
}

func trimBook(b *Book) {
	b.Title = strings.TrimSpace(b.Title)
	b.ISBN = strings.TrimSpace(b.ISBN)
	b.Author = strings.TrimSpace(b.Author)
	b.Genre = strings.TrimSpace(b.Genre)
}

func validateBook(title, isbn, author, genre string, year *int) error {
	switch {
	case title == "":
		return invalid("title", "is required")
	case isbn == "":
		return invalid("isbn", "is required")
	case author == "":
		return invalid("author", "is required")
	case genre == "":
		return invalid("genre", "is required")
	case year != nil && *year < minPublicationYear:
		return invalid("publication year", "must be 1000 or later")
	}
	return nil
}
