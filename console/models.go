package console

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timestamp is a point in time as the API renders it. The zero value means
// "not set" and is encoded as JSON null.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts RFC3339 (with or without fractional seconds),
// "2006-01-02 15:04:05" and plain dates.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("unrecognised timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// Date renders the calendar date, or "" when unset.
func (t Timestamp) Date() string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// Money decodes both JSON numbers and the quoted decimals some backends emit.
type Money float64

func (m *Money) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*m = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	if s == "" {
		*m = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", s, err)
	}
	*m = Money(f)
	return nil
}

func (m Money) String() string { return strconv.FormatFloat(float64(m), 'f', 2, 64) }

// Book is a catalog entry. AvailableCopies never exceeds TotalCopies; the API
// is authoritative for that, forms only clamp input.
type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Author          string    `json:"author"`
	ISBN            string    `json:"isbn"`
	Genre           string    `json:"genre"`
	TotalCopies     int       `json:"total_copies"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       Timestamp `json:"created_at"`
	UpdatedAt       Timestamp `json:"updated_at"`
}

// User is a library patron account. Password carries the server-side hash
// and is only ever shown truncated.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Password  string    `json:"password,omitempty"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// PasswordPreview returns the first eight characters of the stored hash.
func (u User) PasswordPreview() string {
	if u.Password == "" {
		return "N/A"
	}
	if len(u.Password) <= 8 {
		return u.Password
	}
	return u.Password[:8] + "..."
}

// UserRef and BookRef are the relations the API embeds in a transaction.
type UserRef struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type BookRef struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	ISBN   string `json:"isbn"`
}

// Transaction records one borrow of one book by one user.
type Transaction struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	BookID     int64     `json:"book_id"`
	BorrowedAt Timestamp `json:"borrowed_at"`
	DueAt      Timestamp `json:"due_at"`
	ReturnedAt Timestamp `json:"returned_at"`
	LateFee    Money     `json:"late_fee"`
	User       *UserRef  `json:"user,omitempty"`
	Book       *BookRef  `json:"book,omitempty"`
}

// Status is derived from the timestamps, never stored.
type Status int

const (
	StatusActive Status = iota
	StatusOverdue
	StatusReturned
)

func (s Status) String() string {
	switch s {
	case StatusReturned:
		return "Returned"
	case StatusOverdue:
		return "Overdue"
	default:
		return "Active"
	}
}

// Status reports the transaction state at now.
func (t Transaction) Status(now time.Time) Status {
	if !t.ReturnedAt.IsZero() {
		return StatusReturned
	}
	if !t.DueAt.IsZero() && t.DueAt.Before(now) {
		return StatusOverdue
	}
	return StatusActive
}

func (t Transaction) UserName() string {
	if t.User == nil {
		return ""
	}
	return t.User.Name
}

func (t Transaction) BookTitle() string {
	if t.Book == nil {
		return ""
	}
	return t.Book.Title
}

func (t Transaction) BookISBN() string {
	if t.Book == nil {
		return ""
	}
	return t.Book.ISBN
}

// Profile is the administrator account returned by /login and /user.
type Profile struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string  `json:"token"`
	User  Profile `json:"user"`
}
