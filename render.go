package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"library-admin/console"
)

func printBooks(w io.Writer, p console.Page[console.Book]) {
	if p.Total == 0 {
		fmt.Fprintln(w, "No books found.")
		return
	}
	fmt.Fprintf(w, "%-5s %-30s %-22s %-15s %-14s %s\n", "ID", "Title", "Author", "ISBN", "Genre", "Copies")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, b := range p.Items {
		fmt.Fprintf(w, "%-5d %-30s %-22s %-15s %-14s %d/%d\n",
			b.ID,
			truncateString(b.Title, 30),
			truncateString(b.Author, 22),
			truncateString(b.ISBN, 15),
			truncateString(b.Genre, 14),
			b.AvailableCopies, b.TotalCopies)
	}
	printPageFooter(w, p.From, p.To, p.Total, p.Page, p.Pages)
}

func printUsers(w io.Writer, p console.Page[console.User]) {
	if p.Total == 0 {
		fmt.Fprintln(w, "No users found.")
		return
	}
	fmt.Fprintf(w, "%-5s %-25s %-30s %-12s %s\n", "ID", "Name", "Email", "Password", "Joined")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, u := range p.Items {
		fmt.Fprintf(w, "%-5d %-25s %-30s %-12s %s\n",
			u.ID,
			truncateString(u.Name, 25),
			truncateString(u.Email, 30),
			u.PasswordPreview(),
			orDash(u.CreatedAt.Date()))
	}
	printPageFooter(w, p.From, p.To, p.Total, p.Page, p.Pages)
}

func printTransactions(w io.Writer, p console.Page[console.Transaction], now time.Time) {
	if p.Total == 0 {
		fmt.Fprintln(w, "No transactions found.")
		return
	}
	fmt.Fprintf(w, "%-5s %-20s %-28s %-11s %-11s %-11s %-9s %s\n", "ID", "User", "Book", "Borrowed", "Due", "Returned", "Status", "Late fee")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, t := range p.Items {
		user := t.UserName()
		if user == "" {
			user = fmt.Sprintf("ID: %d", t.UserID)
		}
		book := t.BookTitle()
		if book == "" {
			book = fmt.Sprintf("ID: %d", t.BookID)
		}
		fmt.Fprintf(w, "%-5d %-20s %-28s %-11s %-11s %-11s %-9s %s\n",
			t.ID,
			truncateString(user, 20),
			truncateString(book, 28),
			orDash(t.BorrowedAt.Date()),
			orDash(t.DueAt.Date()),
			orDash(t.ReturnedAt.Date()),
			t.Status(now),
			t.LateFee)
	}
	printPageFooter(w, p.From, p.To, p.Total, p.Page, p.Pages)
}

func printPageFooter(w io.Writer, from, to, total, page, pages int) {
	fmt.Fprintf(w, "\nShowing %d to %d of %d results (page %d of %d)\n", from, to, total, page, pages)
}

func printDashboard(w io.Writer, s console.Summary) {
	fmt.Fprintln(w, "Dashboard")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	printCard(w, "Total Users", s.Users)
	printCard(w, "Total Books", s.Books)
	printCard(w, "Active Borrowings", s.ActiveBorrows)
	printCard(w, "Overdue Books", s.Overdue)
	fmt.Fprintf(w, "%-20s %d of %d available, %d genres\n", "Copies", s.CopiesAvailable, s.CopiesTotal, s.Genres)
	fmt.Fprintf(w, "%-20s %s\n", "Late fees", s.LateFees)

	fmt.Fprintln(w, "\nRecent Users")
	if len(s.RecentUsers) == 0 {
		fmt.Fprintln(w, "  No recent users")
	}
	for _, u := range s.RecentUsers {
		fmt.Fprintf(w, "  %-25s %s\n", truncateString(u.Name, 25), u.Email)
	}
	fmt.Fprintln(w, "\nRecent Books")
	if len(s.RecentBooks) == 0 {
		fmt.Fprintln(w, "  No recent books")
	}
	for _, b := range s.RecentBooks {
		fmt.Fprintf(w, "  %-30s %s\n", truncateString(b.Title, 30), b.Author)
	}
}

func printCard(w io.Writer, title string, c console.Card) {
	if c.Err != "" {
		fmt.Fprintf(w, "%-20s unavailable (%s)\n", title, c.Err)
		return
	}
	trend := ""
	if c.Trend != nil {
		trend = fmt.Sprintf("  %+.0f%% from last month", *c.Trend)
	}
	fmt.Fprintf(w, "%-20s %d%s\n", title, c.Value, trend)
}

func printReport(w io.Writer, r console.Report) {
	fmt.Fprintln(w, "System Usage (borrows by weekday)")
	printBars(w, r.BorrowsByWeekday)

	fmt.Fprintln(w, "\nUser Growth (sign-ups by month)")
	printBars(w, r.SignupsByMonth)

	fmt.Fprintln(w, "\nCirculation")
	for _, st := range []console.Status{console.StatusActive, console.StatusOverdue, console.StatusReturned} {
		fmt.Fprintf(w, "  %-10s %d\n", st, r.Status[st])
	}
	fmt.Fprintf(w, "  %-10s %s\n", "Late fees", r.LateFees)

	fmt.Fprintln(w, "\nMost Borrowed")
	if len(r.TopBooks) == 0 {
		fmt.Fprintln(w, "  No borrowing activity")
	}
	for i, b := range r.TopBooks {
		title := b.Title
		if title == "" {
			title = fmt.Sprintf("Book ID: %d", b.BookID)
		}
		fmt.Fprintf(w, "  %d. %-30s %d\n", i+1, truncateString(title, 30), b.Borrows)
	}

	fmt.Fprintln(w, "\nBook Catalog Activity (last 30 days)")
	fmt.Fprintf(w, "  %-10s %d\n  %-10s %d\n", "Added", r.BooksAdded, "Edited", r.BooksEdited)
}

const barWidth = 40

func printBars(w io.Writer, buckets []console.Bucket) {
	peak := 0
	for _, b := range buckets {
		peak = max(peak, b.Count)
	}
	for _, b := range buckets {
		n := 0
		if peak > 0 {
			n = b.Count * barWidth / peak
		}
		fmt.Fprintf(w, "  %-9s %s %d\n", b.Label, strings.Repeat("#", n), b.Count)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	return string(r[:maxLength-3]) + "..."
}
