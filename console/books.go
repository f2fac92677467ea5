package console

// BookForm is the create/edit payload for a book.
type BookForm struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn"`
	Genre           string `json:"genre"`
	TotalCopies     int    `json:"total_copies"`
	AvailableCopies int    `json:"available_copies"`
}

// NewBookForm returns the defaults of an empty form: one copy, available.
func NewBookForm() BookForm {
	return BookForm{TotalCopies: 1, AvailableCopies: 1}
}

// BookFormFrom pre-fills a form for editing b.
func BookFormFrom(b Book) BookForm {
	return BookForm{
		Title:           b.Title,
		Author:          b.Author,
		ISBN:            b.ISBN,
		Genre:           b.Genre,
		TotalCopies:     b.TotalCopies,
		AvailableCopies: b.AvailableCopies,
	}
}

// SetTotalCopies sets the total and pulls available copies down to it.
func (f *BookForm) SetTotalCopies(n int) {
	f.TotalCopies = max(n, 0)
	f.AvailableCopies = min(f.AvailableCopies, f.TotalCopies)
}

// SetAvailableCopies clamps n into [0, TotalCopies].
func (f *BookForm) SetAvailableCopies(n int) {
	f.AvailableCopies = min(max(n, 0), f.TotalCopies)
}

func bookID(b Book) int64 { return b.ID }

// BookSchema searches title, author, ISBN and genre.
var BookSchema = Schema[Book]{
	Noun: "Book",
	ID:   bookID,
	Search: func(b Book) []string {
		return []string{b.Title, b.Author, b.ISBN, b.Genre}
	},
	Sorts: map[string]Comparator[Book]{
		"id":               ByNumber(bookID),
		"title":            ByText(func(b Book) string { return b.Title }),
		"author":           ByText(func(b Book) string { return b.Author }),
		"isbn":             ByText(func(b Book) string { return b.ISBN }),
		"genre":            ByText(func(b Book) string { return b.Genre }),
		"total_copies":     ByNumber(func(b Book) int { return b.TotalCopies }),
		"available_copies": ByNumber(func(b Book) int { return b.AvailableCopies }),
		"created_at":       ByTime(func(b Book) Timestamp { return b.CreatedAt }),
		"updated_at":       ByTime(func(b Book) Timestamp { return b.UpdatedAt }),
	},
}

// Books is the list controller for the catalog.
type Books = List[Book, BookForm]

// NewBooks wires the catalog controller to the API.
func NewBooks(c *Client, deps Deps) *Books {
	res := ResourceFuncs[Book, BookForm]{
		ListFn:   c.ListBooks,
		CreateFn: c.CreateBook,
		UpdateFn: c.UpdateBook,
		DeleteFn: c.DeleteBook,
	}
	return NewList(BookSchema, res, deps, NewBookForm, BookFormFrom)
}

// BookStats summarises the catalog.
type BookStats struct {
	Titles          int
	TotalCopies     int
	AvailableCopies int
	UniqueGenres    int
}

func BookStatsOf(books []Book) BookStats {
	genres := make(map[string]struct{})
	var s BookStats
	for _, b := range books {
		s.Titles++
		s.TotalCopies += b.TotalCopies
		s.AvailableCopies += b.AvailableCopies
		genres[b.Genre] = struct{}{}
	}
	s.UniqueGenres = len(genres)
	return s
}
