package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"library-admin/console"

	"github.com/spf13/cobra"
)

// row is one parsed CSV line: title,author,isbn,genre[,copies].
type row struct {
	line int
	form console.BookForm
}

func main() {
	var (
		file   string
		dryRun bool
	)
	cmd := &cobra.Command{
		Use:           "import_books",
		Short:         "Create catalog entries from a CSV file (title,author,isbn,genre,copies)",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), file, dryRun)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "books.csv", "CSV file to import")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and check the file without creating anything")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, file string, dryRun bool) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer f.Close()
	rows, err := readRows(f)
	if err != nil {
		return err
	}

	cfg := console.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := console.NewLogger(cfg.LogPath(), cfg.Debug)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer log.Close()
	store, err := console.OpenTokenStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open session storage: %w", err)
	}
	defer store.Close()

	session := console.NewSession(store, log)
	if err := session.Initialize(ctx, true); err != nil {
		return err
	}
	if !session.Authenticated() {
		return errors.New("not logged in; run 'library-admin login' first")
	}
	client := console.NewClient(cfg.APIURL, cfg.HTTPTimeout, session, log)
	books := console.NewBooks(client, console.Deps{Log: log, PageSize: cfg.PageSize})

	if err := books.Load(ctx); err != nil {
		return errors.New(console.UserMessage(err))
	}
	known := make(map[string]bool)
	for _, b := range books.Items() {
		if b.ISBN != "" {
			known[b.ISBN] = true
		}
	}

	fmt.Printf("Importing %d book(s) from %s...\n", len(rows), file)
	successCount, skipCount, errorCount := 0, 0, 0
	var imported []string
	for _, r := range rows {
		fmt.Printf("Importing: %s by %s... ", r.form.Title, r.form.Author)
		if r.form.ISBN != "" && known[r.form.ISBN] {
			fmt.Printf("SKIPPED - ISBN %s already in catalog\n", r.form.ISBN)
			skipCount++
			continue
		}
		if dryRun {
			fmt.Println("OK (dry run)")
			successCount++
			continue
		}
		if err := client.CreateBook(ctx, r.form); err != nil {
			fmt.Printf("ERROR (line %d) - %s\n", r.line, console.UserMessage(err))
			errorCount++
			if !session.Authenticated() {
				fmt.Println("Session ended by the server; stopping.")
				break
			}
			continue
		}
		fmt.Println("SUCCESS")
		if r.form.ISBN != "" {
			known[r.form.ISBN] = true
		}
		imported = append(imported, bookKey(r.form.Title, r.form.ISBN))
		successCount++
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d books\n", successCount)
	fmt.Printf("Skipped: %d\n", skipCount)
	fmt.Printf("Errors: %d\n", errorCount)

	// Display summary of imported books
	if len(imported) > 0 {
		if err := books.Load(ctx); err != nil {
			return errors.New(console.UserMessage(err))
		}
		_ = books.SetSort("id", console.Ascending)
		wanted := make(map[string]bool, len(imported))
		for _, k := range imported {
			wanted[k] = true
		}
		fmt.Println("\nImported books:")
		fmt.Printf("%-5s %-45s %-25s %s\n", "ID", "Title", "Author", "Copies")
		fmt.Println(strings.Repeat("-", 85))
		for _, b := range books.Sorted() {
			if !wanted[bookKey(b.Title, b.ISBN)] {
				continue
			}
			fmt.Printf("%-5d %-45s %-25s %d\n", b.ID, truncateString(b.Title, 45), truncateString(b.Author, 25), b.TotalCopies)
		}
	}
	if errorCount > 0 {
		return fmt.Errorf("%d row(s) failed", errorCount)
	}
	return nil
}

// readRows parses the CSV. A first line starting with "title" is a header.
// Copies defaults to 1, and every copy starts out available.
func readRows(r io.Reader) ([]row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []row
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if line == 1 && len(rec) > 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "title") {
			continue
		}
		if len(rec) < 4 {
			return nil, fmt.Errorf("line %d: want title,author,isbn,genre[,copies], got %d field(s)", line, len(rec))
		}
		f := console.NewBookForm()
		f.Title = strings.TrimSpace(rec[0])
		f.Author = strings.TrimSpace(rec[1])
		f.ISBN = strings.TrimSpace(rec[2])
		f.Genre = strings.TrimSpace(rec[3])
		if f.Title == "" || f.Author == "" {
			return nil, fmt.Errorf("line %d: title and author are required", line)
		}
		if len(rec) > 4 && strings.TrimSpace(rec[4]) != "" {
			n, err := strconv.Atoi(strings.TrimSpace(rec[4]))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("line %d: invalid copies %q", line, rec[4])
			}
			f.SetTotalCopies(n)
			f.SetAvailableCopies(n)
		}
		rows = append(rows, row{line: line, form: f})
	}
	return rows, nil
}

func bookKey(title, isbn string) string { return title + "\x00" + isbn }

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
