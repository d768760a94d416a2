// Package catalog reads YAML book catalogs for bulk import.
package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"lending-library/library"
)

// Entry is one book in a catalog file.
type Entry struct {
	Title  string `yaml:"title"`
	ISBN   string `yaml:"isbn"`
	Author string `yaml:"author"`
	Genre  string `yaml:"genre"`
	Year   int    `yaml:"year,omitempty"`
}

// Book converts the entry to a catalog record. A zero year means unset.
func (e Entry) Book() library.Book {
	b := library.Book{Title: e.Title, ISBN: e.ISBN, Author: e.Author, Genre: e.Genre}
	if e.Year != 0 {
		year := e.Year
		b.PublicationYear = &year
	}
	return b
}

// Load reads a catalog file from disk.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into an entry list.
func Parse(data []byte) ([]Entry, error) {
	if len(data) == 0 {
		return []Entry{}, nil
	}
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing catalog YAML: %w", err)
	}
	if entries == nil {
		return []Entry{}, nil
	}
	return entries, nil
}

// Result is the outcome of importing one entry: the created book or the
// reason it was skipped.
type Result struct {
	Entry Entry
	Book  *library.Book
	Err   error
}

// BookCreator is the part of the catalog manager Import needs.
type BookCreator interface {
	CreateBook(ctx context.Context, b library.Book) (*library.Book, error)
}

// Import creates every entry, one transaction each. A rejected entry does
// not stop the rest; a cancelled context does.
func Import(ctx context.Context, books BookCreator, entries []Entry) ([]Result, error) {
	results := make([]Result, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		b, err := books.CreateBook(ctx, e.Book())
		results = append(results, Result{Entry: e, Book: b, Err: err})
	}
	return results, nil
}
