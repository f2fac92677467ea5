package console

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// BorrowForm is the borrow payload; it doubles as the transaction edit form.
// DueAt is a calendar date, "2006-01-02".
type BorrowForm struct {
	UserID int64  `json:"user_id"`
	BookID int64  `json:"book_id"`
	DueAt  string `json:"due_at"`
}

func NewBorrowForm() BorrowForm { return BorrowForm{} }

func BorrowFormFrom(t Transaction) BorrowForm {
	return BorrowForm{UserID: t.UserID, BookID: t.BookID, DueAt: t.DueAt.Date()}
}

func transactionID(t Transaction) int64 { return t.ID }

// TransactionSchema searches the embedded user name, book title and ISBN.
var TransactionSchema = Schema[Transaction]{
	Noun: "Transaction",
	ID:   transactionID,
	Search: func(t Transaction) []string {
		return []string{t.UserName(), t.BookTitle(), t.BookISBN()}
	},
	Sorts: map[string]Comparator[Transaction]{
		"id":          ByNumber(transactionID),
		"user":        ByText(Transaction.UserName),
		"book":        ByText(Transaction.BookTitle),
		"borrowed_at": ByTime(func(t Transaction) Timestamp { return t.BorrowedAt }),
		"due_at":      ByTime(func(t Transaction) Timestamp { return t.DueAt }),
		"returned_at": ByTime(func(t Transaction) Timestamp { return t.ReturnedAt }),
		"late_fee":    ByNumber(func(t Transaction) Money { return t.LateFee }),
	},
	CreatedMsg: "Book borrowed successfully",
}

// Transactions is the circulation list controller. Create is a borrow.
type Transactions = List[Transaction, BorrowForm]

func NewTransactions(c *Client, deps Deps) *Transactions {
	res := ResourceFuncs[Transaction, BorrowForm]{
		ListFn:   c.ListTransactions,
		CreateFn: c.Borrow,
		UpdateFn: c.UpdateTransaction,
		DeleteFn: c.DeleteTransaction,
	}
	return NewList(TransactionSchema, res, deps, NewBorrowForm, BorrowFormFrom)
}

// Workflow drives borrow and return across the circulation, catalog and
// patron lists. Both actions change availability, so the book list is
// resynchronised with the transaction list afterwards.
type Workflow struct {
	Transactions *Transactions
	Books        *Books
	Users        *Users

	deps     Deps
	returnFn func(ctx context.Context, id int64) error
	now      func() time.Time
}

func NewWorkflow(c *Client, txs *Transactions, books *Books, users *Users, deps Deps) *Workflow {
	return &Workflow{
		Transactions: txs,
		Books:        books,
		Users:        users,
		deps:         deps.withDefaults(),
		returnFn:     c.Return,
		now:          time.Now,
	}
}

// LoadAll fetches all three collections together. Each list keeps its own
// error; the first failure is returned once every load has finished.
func (w *Workflow) LoadAll(ctx context.Context) error {
	return loadJointly(ctx, w.Transactions, w.Books, w.Users)
}

// BorrowableBooks are the books that can be offered for a borrow.
func (w *Workflow) BorrowableBooks() []Book {
	var out []Book
	for _, b := range w.Books.Items() {
		if b.AvailableCopies > 0 {
			out = append(out, b)
		}
	}
	return out
}

func (w *Workflow) borrowable(id int64) bool {
	for _, b := range w.BorrowableBooks() {
		if b.ID == id {
			return true
		}
	}
	return false
}

// Borrow lends a book. The book must be one of BorrowableBooks, the user must
// be loaded and the due date must not be in the past; otherwise nothing is
// sent.
func (w *Workflow) Borrow(ctx context.Context, f BorrowForm) error {
	if err := w.checkBorrow(f); err != nil {
		w.Transactions.mutationFailed(0, f, "borrow", err)
		return err
	}
	if err := w.Transactions.res.Create(ctx, f); err != nil {
		w.Transactions.mutationFailed(0, f, "borrow", err)
		return err
	}
	w.Transactions.settle(TransactionSchema.CreatedMsg)
	return loadJointly(ctx, w.Transactions, w.Books)
}

func (w *Workflow) checkBorrow(f BorrowForm) error {
	if !w.borrowable(f.BookID) {
		return fmt.Errorf("%w: book %d", ErrBookUnavailable, f.BookID)
	}
	if _, ok := w.Users.Find(f.UserID); !ok {
		return fmt.Errorf("%w: user %d", ErrUnknownUser, f.UserID)
	}
	due, err := time.Parse("2006-01-02", f.DueAt)
	if err != nil {
		return fmt.Errorf("invalid due date %q: %w", f.DueAt, err)
	}
	now := w.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if due.Before(today) {
		return fmt.Errorf("%w: %s", ErrDueDateInPast, f.DueAt)
	}
	return nil
}

// ReturnBook closes transaction id after confirmation. A declined
// confirmation returns (false, nil).
func (w *Workflow) ReturnBook(ctx context.Context, id int64) (bool, error) {
	if t, ok := w.Transactions.Find(id); ok && t.Status(w.now()) == StatusReturned {
		err := fmt.Errorf("transaction %d was already returned on %s", id, t.ReturnedAt.Date())
		w.Transactions.fail("return", err)
		return false, err
	}
	if !w.deps.Confirmer.Confirm("Are you sure you want to return this book?") {
		w.deps.Log.Debugf("return of transaction %d declined", id)
		return false, nil
	}
	if err := w.returnFn(ctx, id); err != nil {
		w.Transactions.fail("return", err)
		return false, err
	}
	w.deps.Notifier.Success("Book returned successfully")
	return true, loadJointly(ctx, w.Transactions, w.Books)
}

// loadJointly runs every load concurrently. A failing load does not cancel
// the others.
func loadJointly(ctx context.Context, loaders ...Loader) error {
	var g errgroup.Group
	for _, l := range loaders {
		l := l
		g.Go(func() error { return l.Load(ctx) })
	}
	return g.Wait()
}
