package app

import (
	"github.com/spf13/cobra"

	"lending-library/library"
)

type bookFlags struct {
	title  string
	isbn   string
	author string
	genre  string
	year   int
}

func (f *bookFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "Book title")
	cmd.Flags().StringVar(&f.isbn, "isbn", "", "ISBN (unique)")
	cmd.Flags().StringVar(&f.author, "author", "", "Author")
	cmd.Flags().StringVar(&f.genre, "genre", "", "Genre")
	cmd.Flags().IntVar(&f.year, "year", 0, "Publication year (1000 or later)")
}

func newBooksCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "books",
		Aliases: []string{"book"},
		Short:   "Manage the book catalog",
	}
	cmd.AddCommand(
		newBooksAddCmd(s),
		newBooksListCmd(s),
		newBooksGetCmd(s),
		newBooksUpdateCmd(s),
		newBooksDeleteCmd(s),
	)
	return cmd
}

func newBooksAddCmd(s *session) *cobra.Command {
	var f bookFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book to the catalog",
		Example: `  lending-library books add --title "Dune" --isbn 978-0441013593 \
      --author "Frank Herbert" --genre "Science Fiction" --year 1965`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b := library.Book{Title: f.title, ISBN: f.isbn, Author: f.author, Genre: f.genre}
			if cmd.Flags().Changed("year") {
				b.PublicationYear = &f.year
			}
			created, err := s.mgr.Catalog.CreateBook(cmd.Context(), b)
			if err != nil {
				return err
			}
			s.out.ok("Added book %q with ID %d", created.Title, created.ID)
			return s.out.book(created)
		},
	}
	f.register(cmd)
	return cmd
}

func newBooksListCmd(s *session) *cobra.Command {
	var (
		available bool
		filter    library.BookFilter
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("available") {
				filter.Available = &available
			}
			books, err := s.mgr.Catalog.ListBooks(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return s.out.books(books)
		},
	}
	cmd.Flags().BoolVar(&available, "available", false, "Only available books (--available=false for books on loan)")
	cmd.Flags().StringVar(&filter.Genre, "genre", "", "Only books of this genre")
	cmd.Flags().StringVar(&filter.Author, "author", "", "Only books by this author")
	return cmd
}

func newBooksGetCmd(s *session) *cobra.Command {
	var isbn string
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Show a book by ID or ISBN",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				b   *library.Book
				err error
			)
			switch {
			case isbn != "" && len(args) == 0:
				b, err = s.mgr.Catalog.FindBookByISBN(cmd.Context(), isbn)
			case isbn == "" && len(args) == 1:
				var id int64
				if id, err = parseID("book", args[0]); err != nil {
					return err
				}
				b, err = s.mgr.Catalog.GetBook(cmd.Context(), id)
			default:
				return usageErr("give either a book ID or --isbn")
			}
			if err != nil {
				return err
			}
			return s.out.book(b)
		},
	}
	cmd.Flags().StringVar(&isbn, "isbn", "", "Look the book up by ISBN")
	return cmd
}

func newBooksUpdateCmd(s *session) *cobra.Command {
	var f bookFlags
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Edit a book's details; omitted flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			current, err := s.mgr.Catalog.GetBook(cmd.Context(), id)
			if err != nil {
				return err
			}

			u := library.BookUpdate{
				Title:           current.Title,
				ISBN:            current.ISBN,
				Author:          current.Author,
				Genre:           current.Genre,
				PublicationYear: current.PublicationYear,
			}
			flags := cmd.Flags()
			if flags.Changed("title") {
				u.Title = f.title
			}
			if flags.Changed("isbn") {
				u.ISBN = f.isbn
			}
			if flags.Changed("author") {
				u.Author = f.author
			}
			if flags.Changed("genre") {
				u.Genre = f.genre
			}
			if flags.Changed("year") {
				u.PublicationYear = &f.year
			}

			updated, err := s.mgr.Catalog.UpdateBook(cmd.Context(), id, u)
			if err != nil {
				return err
			}
			s.out.ok("Updated book %d", updated.ID)
			return s.out.book(updated)
		},
	}
	f.register(cmd)
	return cmd
}

func newBooksDeleteCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a book that is not on loan, with its loan history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("book", args[0])
			if err != nil {
				return err
			}
			if err := s.mgr.Catalog.DeleteBook(cmd.Context(), id); err != nil {
				return err
			}
			s.out.ok("Deleted book %d", id)
			return nil
		},
	}
}
