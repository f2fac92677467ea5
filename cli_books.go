package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"library-admin/console"

	"github.com/spf13/cobra"
)

func newBooksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "books",
		Aliases: []string{"book"},
		Short:   "Manage the catalog",
	}
	cmd.AddCommand(newBooksListCmd(a), newBooksAddCmd(a), newBooksEditCmd(a), newBooksDeleteCmd(a))
	return cmd
}

func newBooksListCmd(a *app) *cobra.Command {
	var o listOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books (sort: id, title, author, isbn, genre, total_copies, available_copies, created_at, updated_at)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listBooks(cmd.Context(), o)
		},
	}
	o.bind(cmd)
	return cmd
}

func (a *app) listBooks(ctx context.Context, o listOptions) error {
	p, err := showList(ctx, a, a.books, o)
	if err != nil {
		return err
	}
	printBooks(a.out, p)
	return nil
}

// bookFlags carries book fields given on the command line; only flags that
// were set are applied.
type bookFlags struct {
	cmd       *cobra.Command
	title     string
	author    string
	isbn      string
	genre     string
	copies    int
	available int
}

func (b *bookFlags) bind(cmd *cobra.Command) {
	b.cmd = cmd
	cmd.Flags().StringVar(&b.title, "title", "", "title")
	cmd.Flags().StringVar(&b.author, "author", "", "author")
	cmd.Flags().StringVar(&b.isbn, "isbn", "", "ISBN")
	cmd.Flags().StringVar(&b.genre, "genre", "", "genre")
	cmd.Flags().IntVar(&b.copies, "copies", 1, "total copies")
	cmd.Flags().IntVar(&b.available, "available", 0, "available copies, clamped to total copies (default: all copies on add)")
}

func (b *bookFlags) changed(name string) bool { return b.cmd != nil && b.cmd.Flags().Changed(name) }

func (b *bookFlags) any() bool {
	for _, name := range []string{"title", "author", "isbn", "genre", "copies", "available"} {
		if b.changed(name) {
			return true
		}
	}
	return false
}

// applyTo copies the set flags into f. On a new book every copy starts out
// available unless --available says otherwise.
func (b *bookFlags) applyTo(f *console.BookForm, create bool) {
	if b.changed("title") {
		f.Title = b.title
	}
	if b.changed("author") {
		f.Author = b.author
	}
	if b.changed("isbn") {
		f.ISBN = b.isbn
	}
	if b.changed("genre") {
		f.Genre = b.genre
	}
	if b.changed("copies") {
		f.SetTotalCopies(b.copies)
		if create {
			f.SetAvailableCopies(f.TotalCopies)
		}
	}
	if b.changed("available") {
		f.SetAvailableCopies(b.available)
	}
}

func newBooksAddCmd(a *app) *cobra.Command {
	var bf bookFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book; prompts for the fields when no flags are given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.addBook(cmd.Context(), &bf)
		},
	}
	bf.bind(cmd)
	return cmd
}

func (a *app) addBook(ctx context.Context, bf *bookFlags) error {
	if err := a.mount(ctx, nil); err != nil {
		return err
	}
	a.books.OpenCreate()
	f := a.books.Form().Values
	if bf != nil && bf.any() {
		bf.applyTo(&f, true)
	} else if !a.promptBook(&f) {
		a.books.CloseForm()
		return nil
	}
	if f.Title == "" || f.Author == "" {
		a.books.CloseForm()
		return errors.New("title and author are required")
	}
	a.books.SetForm(f)
	return shown(a.books.Submit(ctx))
}

func newBooksEditCmd(a *app) *cobra.Command {
	var bf bookFlags
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a book; prompts for each field when no flags are given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.editBook(cmd.Context(), id, &bf)
		},
	}
	bf.bind(cmd)
	return cmd
}

func (a *app) editBook(ctx context.Context, id int64, bf *bookFlags) error {
	if err := a.mount(ctx, a.books); err != nil {
		return err
	}
	if err := a.books.OpenEdit(id); err != nil {
		return fmt.Errorf("book with ID %d not found", id)
	}
	f := a.books.Form().Values
	if bf != nil && bf.any() {
		bf.applyTo(&f, false)
	} else if !a.promptBook(&f) {
		a.books.CloseForm()
		return nil
	}
	a.books.SetForm(f)
	return shown(a.books.Submit(ctx))
}

// promptBook asks for every field, offering the current values as defaults.
func (a *app) promptBook(f *console.BookForm) bool {
	var ok bool
	if f.Title, ok = a.askDefault("Title", f.Title); !ok {
		return false
	}
	if f.Author, ok = a.askDefault("Author", f.Author); !ok {
		return false
	}
	if f.ISBN, ok = a.askDefault("ISBN", f.ISBN); !ok {
		return false
	}
	if f.Genre, ok = a.askDefault("Genre", f.Genre); !ok {
		return false
	}
	total, ok := a.askInt("Total copies", f.TotalCopies)
	if !ok {
		return false
	}
	f.SetTotalCopies(total)
	avail, ok := a.askInt("Available copies", f.AvailableCopies)
	if !ok {
		return false
	}
	f.SetAvailableCopies(avail)
	if f.AvailableCopies != avail {
		fmt.Fprintf(a.out, "Available copies set to %d (must be between 0 and %d).\n", f.AvailableCopies, f.TotalCopies)
	}
	return true
}

func (a *app) askInt(prompt string, def int) (int, bool) {
	for {
		s, ok := a.askDefault(prompt, strconv.Itoa(def))
		if !ok {
			return 0, false
		}
		n, err := strconv.Atoi(s)
		if err == nil {
			return n, true
		}
		fmt.Fprintf(a.out, "Invalid number: %s\n", s)
	}
}

func newBooksDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.deleteBook(cmd.Context(), id)
		},
	}
}

func (a *app) deleteBook(ctx context.Context, id int64) error {
	if err := a.mount(ctx, nil); err != nil {
		return err
	}
	_, err := a.books.Remove(ctx, id)
	return shown(err)
}
