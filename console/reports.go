package console

import (
	"cmp"
	"slices"
	"time"
)

// Bucket is one labelled count in a report series.
type Bucket struct {
	Label string
	Count int
}

// BookActivity counts how often one title was borrowed.
type BookActivity struct {
	BookID  int64
	Title   string
	Borrows int
}

// Report is the usage and growth overview.
type Report struct {
	BorrowsByWeekday []Bucket // Mon..Sun
	SignupsByMonth   []Bucket // the last six months, oldest first
	Status           map[Status]int
	LateFees         Money
	TopBooks         []BookActivity
	BooksAdded       int // catalog entries created in the last 30 days
	BooksEdited      int // catalog entries updated, but not created, in the last 30 days
}

const (
	reportMonths   = 6
	reportTopBooks = 5
)

var weekdayOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// BuildReport computes the report at now from loaded collections.
func BuildReport(txs []Transaction, users []User, books []Book, now time.Time) Report {
	r := Report{Status: make(map[Status]int)}

	byDay := make(map[time.Weekday]int)
	borrows := make(map[int64]*BookActivity)
	for _, t := range txs {
		r.Status[t.Status(now)]++
		r.LateFees += t.LateFee
		if !t.BorrowedAt.IsZero() {
			byDay[t.BorrowedAt.Weekday()]++
		}
		a, ok := borrows[t.BookID]
		if !ok {
			a = &BookActivity{BookID: t.BookID, Title: t.BookTitle()}
			borrows[t.BookID] = a
		}
		a.Borrows++
	}
	for _, d := range weekdayOrder {
		r.BorrowsByWeekday = append(r.BorrowsByWeekday, Bucket{Label: d.String()[:3], Count: byDay[d]})
	}

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(reportMonths - 1), 0)
	months := make([]Bucket, reportMonths)
	for i := range months {
		months[i].Label = first.AddDate(0, i, 0).Format("Jan 2006")
	}
	for _, u := range users {
		if u.CreatedAt.IsZero() || u.CreatedAt.Before(first) {
			continue
		}
		c := u.CreatedAt.In(now.Location())
		i := (c.Year()-first.Year())*12 + int(c.Month()-first.Month())
		if i < reportMonths {
			months[i].Count++
		}
	}
	r.SignupsByMonth = months

	for _, a := range borrows {
		r.TopBooks = append(r.TopBooks, *a)
	}
	slices.SortFunc(r.TopBooks, func(a, b BookActivity) int {
		if c := cmp.Compare(b.Borrows, a.Borrows); c != 0 {
			return c
		}
		return cmp.Compare(a.BookID, b.BookID)
	})
	r.TopBooks = r.TopBooks[:min(len(r.TopBooks), reportTopBooks)]

	since := now.AddDate(0, 0, -30)
	for _, b := range books {
		switch {
		case b.CreatedAt.After(since):
			r.BooksAdded++
		case b.UpdatedAt.After(since):
			r.BooksEdited++
		}
	}
	return r
}
