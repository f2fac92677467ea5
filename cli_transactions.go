package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"library-admin/console"

	"github.com/spf13/cobra"
)

const defaultLoanDays = 14

func newTransactionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "Review and correct borrow records",
	}
	cmd.AddCommand(newTransactionsListCmd(a), newTransactionsEditCmd(a), newTransactionsDeleteCmd(a))
	return cmd
}

func newTransactionsListCmd(a *app) *cobra.Command {
	var o listOptions
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions (sort: id, user, book, borrowed_at, due_at, returned_at, late_fee)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listTransactions(cmd.Context(), o)
		},
	}
	o.bind(cmd)
	return cmd
}

func (a *app) listTransactions(ctx context.Context, o listOptions) error {
	p, err := showList(ctx, a, a.txs, o)
	if err != nil {
		return err
	}
	printTransactions(a.out, p, time.Now())
	return nil
}

func newTransactionsEditCmd(a *app) *cobra.Command {
	var due string
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change the due date of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.editTransaction(cmd.Context(), id, due)
		},
	}
	cmd.Flags().StringVar(&due, "due", "", "new due date (YYYY-MM-DD)")
	return cmd
}

func (a *app) editTransaction(ctx context.Context, id int64, due string) error {
	if err := a.mount(ctx, a.txs); err != nil {
		return err
	}
	if err := a.txs.OpenEdit(id); err != nil {
		return fmt.Errorf("transaction with ID %d not found", id)
	}
	f := a.txs.Form().Values
	if due == "" {
		var ok bool
		if due, ok = a.askDefault("Due date (YYYY-MM-DD)", f.DueAt); !ok {
			a.txs.CloseForm()
			return nil
		}
	}
	if _, err := time.Parse(time.DateOnly, due); err != nil {
		a.txs.CloseForm()
		return fmt.Errorf("invalid due date: %s", due)
	}
	f.DueAt = due
	a.txs.SetForm(f)
	return shown(a.txs.Submit(ctx))
}

func newTransactionsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a transaction record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.deleteTransaction(cmd.Context(), id)
		},
	}
}

func (a *app) deleteTransaction(ctx context.Context, id int64) error {
	if err := a.mount(ctx, nil); err != nil {
		return err
	}
	_, err := a.txs.Remove(ctx, id)
	return shown(err)
}

func newBorrowCmd(a *app) *cobra.Command {
	var f console.BorrowForm
	cmd := &cobra.Command{
		Use:   "borrow",
		Short: "Lend a book to a user; prompts for anything not given",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.borrow(cmd.Context(), f)
		},
	}
	cmd.Flags().Int64Var(&f.UserID, "user", 0, "user ID")
	cmd.Flags().Int64Var(&f.BookID, "book", 0, "book ID (must have copies available)")
	cmd.Flags().StringVar(&f.DueAt, "due", "", "due date (YYYY-MM-DD)")
	return cmd
}

func (a *app) borrow(ctx context.Context, f console.BorrowForm) error {
	if err := a.mount(ctx, console.LoaderFunc(a.workflow.LoadAll)); err != nil {
		return err
	}
	var ok bool
	if f.BookID == 0 {
		books := a.workflow.BorrowableBooks()
		if len(books) == 0 {
			fmt.Fprintln(a.out, "No books have copies available.")
			return nil
		}
		fmt.Fprintf(a.out, "%-5s %-30s %-22s %s\n", "ID", "Title", "Author", "Available")
		fmt.Fprintln(a.out, strings.Repeat("-", 70))
		for _, b := range books {
			fmt.Fprintf(a.out, "%-5d %-30s %-22s %d\n", b.ID, truncateString(b.Title, 30), truncateString(b.Author, 22), b.AvailableCopies)
		}
		if f.BookID, ok = a.askID("Book ID: "); !ok {
			return nil
		}
	}
	if f.UserID == 0 {
		if f.UserID, ok = a.askID("User ID: "); !ok {
			return nil
		}
	}
	if f.DueAt == "" {
		def := time.Now().AddDate(0, 0, defaultLoanDays).Format(time.DateOnly)
		if f.DueAt, ok = a.askDefault("Due date (YYYY-MM-DD)", def); !ok {
			return nil
		}
	}
	return shown(a.workflow.Borrow(ctx, f))
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return ID",
		Short: "Return the book of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.returnBook(cmd.Context(), id)
		},
	}
}

func (a *app) returnBook(ctx context.Context, id int64) error {
	if err := a.mount(ctx, a.txs); err != nil {
		return err
	}
	_, err := a.workflow.ReturnBook(ctx, id)
	return shown(err)
}
