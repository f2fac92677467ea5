package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"library-admin/console"

	"github.com/spf13/cobra"
)

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "shell",
		Short:       "Interactive console",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{publicAnnotation: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			a.runShell(cmd.Context())
			return nil
		},
	}
}

// Views the shell can page through.
const (
	viewBooks        = "books"
	viewUsers        = "users"
	viewTransactions = "transactions"
)

func (a *app) runShell(ctx context.Context) {
	a.interactive = true

	fmt.Fprintln(a.out, "Welcome to the Library Admin Console!")
	fmt.Fprintln(a.out, "Available commands:")
	fmt.Fprintln(a.out, "  Session: login, logout, whoami")
	fmt.Fprintln(a.out, "  Books: list books, add book, edit book, delete book")
	fmt.Fprintln(a.out, "  Users: list users, add user, edit user, delete user")
	fmt.Fprintln(a.out, "  Circulation: list transactions, borrow, return, edit transaction, delete transaction")
	fmt.Fprintln(a.out, "  Views: search <text>, sort <field>, page <n>, next, prev, refresh")
	fmt.Fprintln(a.out, "  Overview: dashboard, report")
	fmt.Fprintln(a.out, "  System: exit")
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Tips:")
	fmt.Fprintln(a.out, "  • 'search', 'sort' and paging apply to the last list shown")
	fmt.Fprintln(a.out, "  • 'sort' on the same field twice flips the direction")
	if !a.session.Authenticated() {
		fmt.Fprintln(a.out, "  • You are not logged in. Type 'login' first.")
	}

	view := ""
	for {
		fmt.Fprint(a.out, "\n> ")
		if !a.in.Scan() {
			break
		}
		line := strings.TrimSpace(a.in.Text())
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)

		var err error
		switch line {
		case "":
			continue
		case "login":
			err = a.login(ctx, "")
		case "logout":
			err = a.logout(ctx)
		case "whoami":
			err = a.whoami(ctx)
		case "list books":
			view, err = viewBooks, a.refreshView(ctx, viewBooks)
		case "list users":
			view, err = viewUsers, a.refreshView(ctx, viewUsers)
		case "list transactions":
			view, err = viewTransactions, a.refreshView(ctx, viewTransactions)
		case "add book":
			err = a.addBook(ctx, nil)
		case "edit book":
			err = a.withID("Book ID: ", func(id int64) error { return a.editBook(ctx, id, nil) })
		case "delete book":
			err = a.withID("Book ID: ", func(id int64) error { return a.deleteBook(ctx, id) })
		case "add user":
			err = a.addUser(ctx, "", "")
		case "edit user":
			err = a.withID("User ID: ", func(id int64) error { return a.editUser(ctx, id, nil, nil, false) })
		case "delete user":
			err = a.withID("User ID: ", func(id int64) error { return a.deleteUser(ctx, id) })
		case "borrow":
			err = a.borrow(ctx, console.BorrowForm{})
		case "return":
			err = a.withID("Transaction ID: ", func(id int64) error { return a.returnBook(ctx, id) })
		case "edit transaction":
			err = a.withID("Transaction ID: ", func(id int64) error { return a.editTransaction(ctx, id, "") })
		case "delete transaction":
			err = a.withID("Transaction ID: ", func(id int64) error { return a.deleteTransaction(ctx, id) })
		case "dashboard":
			err = a.dashboard(ctx)
		case "report":
			err = a.report(ctx)
		case "next", "prev", "refresh":
			err = a.handleViewCommand(ctx, view, cmd, "")
		case "exit", "quit":
			fmt.Fprintln(a.out, "Goodbye!")
			return
		default:
			switch cmd {
			case "search", "sort", "page":
				err = a.handleViewCommand(ctx, view, cmd, arg)
			default:
				fmt.Fprintln(a.out, "Unknown command. Type one of the available commands listed above.")
			}
		}
		if err != nil && !errors.Is(err, errShown) {
			fmt.Fprintf(a.out, "Error: %v\n", err)
		}
		// A list loaded under an ended session is not steered again.
		if !a.session.Authenticated() {
			view = ""
		}
	}
}

func (a *app) withID(prompt string, fn func(id int64) error) error {
	id, ok := a.askID(prompt)
	if !ok {
		return nil
	}
	return fn(id)
}

// refreshView reloads a list and shows its current page. A failed reload
// still shows the data loaded before, unless it ended the session.
func (a *app) refreshView(ctx context.Context, view string) error {
	var err error
	switch view {
	case viewBooks:
		err = a.mount(ctx, a.books)
		if a.renderable(a.books) {
			printBooks(a.out, a.books.View())
		}
	case viewUsers:
		err = a.mount(ctx, a.users)
		if a.renderable(a.users) {
			printUsers(a.out, a.users.View())
		}
	case viewTransactions:
		err = a.mount(ctx, a.txs)
		if a.renderable(a.txs) {
			printTransactions(a.out, a.txs.View(), time.Now())
		}
	}
	return err
}

// handleViewCommand changes the query, sort or page of the last list shown
// and prints it again from the loaded data.
func (a *app) handleViewCommand(ctx context.Context, view, cmd, arg string) error {
	if err := a.mount(ctx, nil); err != nil {
		return err
	}
	if view == "" {
		return errors.New("no list shown yet; try 'list books'")
	}
	if cmd == "refresh" {
		return a.refreshView(ctx, view)
	}

	var page int
	if cmd == "page" {
		n, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid page: %s", arg)
		}
		page = n
	}

	switch view {
	case viewBooks:
		if err := steer(a.books, cmd, arg, page); err != nil {
			return err
		}
		printBooks(a.out, a.books.View())
	case viewUsers:
		if err := steer(a.users, cmd, arg, page); err != nil {
			return err
		}
		printUsers(a.out, a.users.View())
	case viewTransactions:
		if err := steer(a.txs, cmd, arg, page); err != nil {
			return err
		}
		printTransactions(a.out, a.txs.View(), time.Now())
	}
	return nil
}
