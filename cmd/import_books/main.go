package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lending-library/internal/catalog"
	"lending-library/internal/config"
	"lending-library/internal/logging"
	"lending-library/library"
)

func main() {
	var configPath, dbPath string

	cmd := &cobra.Command{
		Use:   "import_books <catalog.yml>",
		Short: "Bulk-import books from a YAML catalog",
		Long: `import_books reads a YAML list of books (title, isbn, author, genre, year)
and adds each one to the catalog. Entries that are rejected, e.g. for a
duplicate ISBN, are reported and skipped.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath, dbPath, args[0])
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Config file path")
	cmd.Flags().StringVar(&dbPath, "db", "", "Database file or connection string")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error:"), err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, dbPath, catalogPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.Database.DSN = config.ExpandHome(dbPath)
	}
	logger, err := logging.New(os.Stderr, logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}
	ctx = logging.WithRequestID(ctx)

	entries, err := catalog.Load(catalogPath)
	if err != nil {
		return err
	}

	manager, err := library.NewLibraryManager(cfg.Database.DSN,
		[]library.DBOption{library.WithDriver(cfg.Database.Driver), library.WithQueryLogger(logger)},
		library.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("opening library: %w", err)
	}
	defer manager.Close()

	fmt.Printf("Importing %d book(s) from %s...\n", len(entries), catalogPath)
	results, err := catalog.Import(ctx, manager.Catalog, entries)

	successCount, errorCount := 0, 0
	for _, r := range results {
		fmt.Printf("Importing: %s by %s... ", r.Entry.Title, r.Entry.Author)
		if r.Err != nil {
			fmt.Println(color.RedString("ERROR"), "-", r.Err)
			errorCount++
			continue
		}
		fmt.Println(color.GreenString("SUCCESS"), fmt.Sprintf("(ID: %d)", r.Book.ID))
		successCount++
	}
	if err != nil {
		return err
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d books\n", successCount)
	fmt.Printf("Errors: %d\n", errorCount)

	if successCount > 0 {
		fmt.Println("\nImported books:")
		fmt.Printf("%-5s %-45s %-30s %s\n", "ID", "Title", "Author", "ISBN")
		fmt.Println(strings.Repeat("-", 100))
		for _, r := range results {
			if r.Book == nil {
				continue
			}
			b := r.Book
			fmt.Printf("%-5d %-45s %-30s %s\n", b.ID, truncateString(b.Title, 45), truncateString(b.Author, 30), b.ISBN)
		}
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
