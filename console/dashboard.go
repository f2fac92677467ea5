package console

import (
	"context"
	"slices"
	"time"
)

// Dashboard aggregates the three lists for the landing view.
type Dashboard struct {
	Books        *Books
	Users        *Users
	Transactions *Transactions
}

func NewDashboard(books *Books, users *Users, txs *Transactions) *Dashboard {
	return &Dashboard{Books: books, Users: users, Transactions: txs}
}

// Load issues every list load at once and waits for all of them. One failing
// load neither cancels the others nor clears their data.
func (d *Dashboard) Load(ctx context.Context) error {
	return loadJointly(ctx, d.Books, d.Users, d.Transactions)
}

// Card is one headline figure. Trend is the month-over-month change in
// percent of items created, nil when last month had none.
type Card struct {
	Value int
	Trend *float64
	Err   string
}

// Summary is what the dashboard renders.
type Summary struct {
	Users           Card
	Books           Card
	ActiveBorrows   Card
	Overdue         Card
	CopiesTotal     int
	CopiesAvailable int
	Genres          int
	LateFees        Money
	RecentUsers     []User
	RecentBooks     []Book
}

const recentCount = 5

// Summary derives the headline figures from what is currently loaded.
func (d *Dashboard) Summary(now time.Time) Summary {
	books := d.Books.Items()
	users := d.Users.Items()
	txs := d.Transactions.Items()

	bs := BookStatsOf(books)
	s := Summary{
		Users:           Card{Value: len(users), Err: d.Users.Err()},
		Books:           Card{Value: bs.Titles, Err: d.Books.Err()},
		CopiesTotal:     bs.TotalCopies,
		CopiesAvailable: bs.AvailableCopies,
		Genres:          bs.UniqueGenres,
		RecentUsers:     lastReversed(users, recentCount),
		RecentBooks:     lastReversed(books, recentCount),
	}
	s.Users.Trend = monthTrend(users, func(u User) Timestamp { return u.CreatedAt }, now)
	s.Books.Trend = monthTrend(books, func(b Book) Timestamp { return b.CreatedAt }, now)

	txErr := d.Transactions.Err()
	s.ActiveBorrows.Err, s.Overdue.Err = txErr, txErr
	for _, t := range txs {
		switch t.Status(now) {
		case StatusActive:
			s.ActiveBorrows.Value++
		case StatusOverdue:
			s.Overdue.Value++
		}
		s.LateFees += t.LateFee
	}
	return s
}

// lastReversed returns the last n items, newest first, matching the API's
// creation order.
func lastReversed[T any](items []T, n int) []T {
	out := slices.Clone(items[max(len(items)-n, 0):])
	slices.Reverse(out)
	return out
}

func monthTrend[T any](items []T, created func(T) Timestamp, now time.Time) *float64 {
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonth := thisMonth.AddDate(0, -1, 0)
	var cur, prev int
	for _, it := range items {
		c := created(it)
		switch {
		case c.IsZero():
		case !c.Before(thisMonth):
			cur++
		case !c.Before(lastMonth):
			prev++
		}
	}
	if prev == 0 {
		return nil
	}
	pct := float64(cur-prev) / float64(prev) * 100
	return &pct
}
