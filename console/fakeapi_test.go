package console

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

// fakeAPI is an in-memory library REST API.
type fakeAPI struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	token    string
	books    []Book
	users    []User
	txs      []Transaction
	nextID   int64
	calls    map[string]int
	auth     []string
	lastBody map[string][]byte
	fail     map[string]int // route -> status returned instead of handling
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{
		t:        t,
		token:    "test-token",
		nextID:   100,
		calls:    make(map[string]int),
		lastBody: make(map[string][]byte),
		fail:     make(map[string]int),
	}

	r := mux.NewRouter()
	s := r.PathPrefix("/api").Subrouter()
	s.Use(api.record)
	s.HandleFunc("/login", api.login).Methods(http.MethodPost)

	authed := s.NewRoute().Subrouter()
	authed.Use(api.requireToken)
	authed.HandleFunc("/user", api.me).Methods(http.MethodGet)
	authed.HandleFunc("/books", api.listBooks).Methods(http.MethodGet)
	authed.HandleFunc("/books", api.createBook).Methods(http.MethodPost)
	authed.HandleFunc("/books/{id:[0-9]+}", api.updateBook).Methods(http.MethodPut)
	authed.HandleFunc("/books/{id:[0-9]+}", api.deleteBook).Methods(http.MethodDelete)
	authed.HandleFunc("/users", api.listUsers).Methods(http.MethodGet)
	authed.HandleFunc("/users", api.createUser).Methods(http.MethodPost)
	authed.HandleFunc("/users/{id:[0-9]+}", api.updateUser).Methods(http.MethodPut)
	authed.HandleFunc("/users/{id:[0-9]+}", api.deleteUser).Methods(http.MethodDelete)
	authed.HandleFunc("/transactions", api.listTransactions).Methods(http.MethodGet)
	authed.HandleFunc("/transactions/{id:[0-9]+}", api.updateTransaction).Methods(http.MethodPut)
	authed.HandleFunc("/transactions/{id:[0-9]+}", api.deleteTransaction).Methods(http.MethodDelete)
	authed.HandleFunc("/borrow", api.borrow).Methods(http.MethodPost)
	authed.HandleFunc("/return/{id:[0-9]+}", api.returnBook).Methods(http.MethodPost)

	api.srv = httptest.NewServer(r)
	t.Cleanup(api.srv.Close)
	return api
}

func (api *fakeAPI) baseURL() string { return api.srv.URL + "/api" }

// routeKey is "METHOD /template" with the /api prefix dropped and id
// patterns shortened, e.g. "PUT /books/{id}".
func routeKey(r *http.Request) string {
	tpl := r.URL.Path
	if route := mux.CurrentRoute(r); route != nil {
		if t, err := route.GetPathTemplate(); err == nil {
			tpl = t
		}
	}
	tpl = strings.ReplaceAll(tpl, "{id:[0-9]+}", "{id}")
	return r.Method + " " + strings.TrimPrefix(tpl, "/api")
}

func (api *fakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))
		key := routeKey(r)

		api.mu.Lock()
		api.calls[key]++
		api.auth = append(api.auth, r.Header.Get("Authorization"))
		api.lastBody[key] = body
		status, failing := api.fail[key]
		api.mu.Unlock()

		if failing {
			writeJSON(w, status, map[string]string{"message": "injected failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (api *fakeAPI) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		want := "Bearer " + api.token
		api.mu.Unlock()
		if r.Header.Get("Authorization") != want {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthenticated."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// revoke makes every further authenticated call fail with 401.
func (api *fakeAPI) revoke() {
	api.mu.Lock()
	api.token = "revoked-" + api.token
	api.mu.Unlock()
}

func (api *fakeAPI) failRoute(key string, status int) {
	api.mu.Lock()
	api.fail[key] = status
	api.mu.Unlock()
}

func (api *fakeAPI) restore(key string) {
	api.mu.Lock()
	delete(api.fail, key)
	api.mu.Unlock()
}

func (api *fakeAPI) callCount(key string) int {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.calls[key]
}

func (api *fakeAPI) authHeaders() []string {
	api.mu.Lock()
	defer api.mu.Unlock()
	return append([]string(nil), api.auth...)
}

func (api *fakeAPI) body(key string) []byte {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.lastBody[key]
}

func (api *fakeAPI) id() int64 {
	api.nextID++
	return api.nextID
}

func (api *fakeAPI) addBook(b Book) Book {
	api.mu.Lock()
	defer api.mu.Unlock()
	if b.ID == 0 {
		b.ID = api.id()
	}
	api.books = append(api.books, b)
	return b
}

func (api *fakeAPI) addUser(u User) User {
	api.mu.Lock()
	defer api.mu.Unlock()
	if u.ID == 0 {
		u.ID = api.id()
	}
	api.users = append(api.users, u)
	return u
}

func (api *fakeAPI) addTransaction(tx Transaction) Transaction {
	api.mu.Lock()
	defer api.mu.Unlock()
	if tx.ID == 0 {
		tx.ID = api.id()
	}
	api.txs = append(api.txs, tx)
	return tx
}

func (api *fakeAPI) book(id int64) (Book, bool) {
	api.mu.Lock()
	defer api.mu.Unlock()
	for _, b := range api.books {
		if b.ID == id {
			return b, true
		}
	}
	return Book{}, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func (api *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad json"})
		return
	}
	if req.Username != "admin" || req.Password != "secret" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid credentials"})
		return
	}
	api.mu.Lock()
	token := api.token
	api.mu.Unlock()
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: Profile{ID: 1, Name: "Admin", Username: "admin", Email: "admin@library.test"}})
}

func (api *fakeAPI) me(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Profile{ID: 1, Name: "Admin", Username: "admin", Email: "admin@library.test"})
}

// ------------------ Books ------------------

func (api *fakeAPI) listBooks(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	books := append([]Book{}, api.books...)
	api.mu.Unlock()
	writeJSON(w, http.StatusOK, books)
}

func (api *fakeAPI) createBook(w http.ResponseWriter, r *http.Request) {
	var f BookForm
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad json"})
		return
	}
	if f.Title == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "The title field is required.",
			"errors":  map[string][]string{"title": {"The title field is required."}},
		})
		return
	}
	now := Timestamp{time.Now().UTC().Truncate(time.Second)}
	b := Book{
		Title: f.Title, Author: f.Author, ISBN: f.ISBN, Genre: f.Genre,
		TotalCopies: f.TotalCopies, AvailableCopies: f.AvailableCopies,
		CreatedAt: now, UpdatedAt: now,
	}
	writeJSON(w, http.StatusCreated, api.addBook(b))
}

func (api *fakeAPI) updateBook(w http.ResponseWriter, r *http.Request) {
	var f BookForm
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad json"})
		return
	}
	id := pathID(r)
	api.mu.Lock()
	defer api.mu.Unlock()
	for i := range api.books {
		if api.books[i].ID == id {
			b := &api.books[i]
			b.Title, b.Author, b.ISBN, b.Genre = f.Title, f.Author, f.ISBN, f.Genre
			b.TotalCopies, b.AvailableCopies = f.TotalCopies, f.AvailableCopies
			writeJSON(w, http.StatusOK, b)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Book not found"})
}

func (api *fakeAPI) deleteBook(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	api.mu.Lock()
	defer api.mu.Unlock()
	for i := range api.books {
		if api.books[i].ID == id {
			api.books = append(api.books[:i], api.books[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Book not found"})
}

// ------------------ Users ------------------

func (api *fakeAPI) listUsers(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	users := append([]User{}, api.users...)
	api.mu.Unlock()
	writeJSON(w, http.StatusOK, users)
}

func (api *fakeAPI) createUser(w http.ResponseWriter, r *http.Request) {
	var f UserForm
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad json"})
		return
	}
	if f.Email == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "The email field is required."})
		return
	}
	now := Timestamp{time.Now().UTC().Truncate(time.Second)}
	u := User{Name: f.Name, Email: f.Email, Password: "$2y$10$" + f.Password, CreatedAt: now, UpdatedAt: now}
	writeJSON(w, http.StatusCreated, api.addUser(u))
}

func (api *fakeAPI) updateUser(w http.ResponseWriter, r *http.Request) {
	var f UserForm
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad json"})
		return
	}
	id := pathID(r)
	api.mu.Lock()
	defer api.mu.Unlock()
	for i := range api.users {
		if api.users[i].ID == id {
			api.users[i].Name, api.users[i].Email = f.Name, f.Email
			if f.Password != "" {
				api.users[i].Password = "$2y$10$" + f.Password
			}
			writeJSON(w, http.StatusOK, api.users[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
}

func (api *fakeAPI) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	api.mu.Lock()
	defer api.mu.Unlock()
	for i := range api.users {
		if api.users[i].ID == id {
			api.users = append(api.users[:i], api.users[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "User not found"})
}

// ------------------ Circulation ------------------

func (api *fakeAPI) listTransactions(w http.ResponseWriter, r *http.Request) {
	api.mu.Lock()
	txs := append([]Transaction{}, api.txs...)
	api.mu.Unlock()
	writeJSON(w, http.StatusOK, txs)
}

func (api *fakeAPI) updateTransaction(w http.ResponseWriter, r *http.Request) {
	var f BorrowForm
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad json"})
		return
	}
	due, err := ParseTimestamp(f.DueAt)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "The due at field must be a valid date."})
		return
	}
	id := pathID(r)
	api.mu.Lock()
	defer api.mu.Unlock()
	for i := range api.txs {
		if api.txs[i].ID == id {
			api.txs[i].DueAt = due
			writeJSON(w, http.StatusOK, api.txs[i])
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Transaction not found"})
}

func (api *fakeAPI) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	api.mu.Lock()
	defer api.mu.Unlock()
	for i := range api.txs {
		if api.txs[i].ID == id {
			api.txs = append(api.txs[:i], api.txs[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Transaction not found"})
}

func (api *fakeAPI) borrow(w http.ResponseWriter, r *http.Request) {
	var f BorrowForm
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "bad json"})
		return
	}
	due, err := ParseTimestamp(f.DueAt)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "The due at field must be a valid date."})
		return
	}
	api.mu.Lock()
	defer api.mu.Unlock()

	var book *Book
	for i := range api.books {
		if api.books[i].ID == f.BookID {
			book = &api.books[i]
		}
	}
	var user *User
	for i := range api.users {
		if api.users[i].ID == f.UserID {
			user = &api.users[i]
		}
	}
	if book == nil || user == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Book or user not found"})
		return
	}
	if book.AvailableCopies < 1 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Book is not available"})
		return
	}
	book.AvailableCopies--
	tx := Transaction{
		ID:         api.id(),
		UserID:     user.ID,
		BookID:     book.ID,
		BorrowedAt: Timestamp{time.Now().UTC().Truncate(time.Second)},
		DueAt:      due,
		User:       &UserRef{Name: user.Name, Email: user.Email},
		Book:       &BookRef{Title: book.Title, Author: book.Author, ISBN: book.ISBN},
	}
	api.txs = append(api.txs, tx)
	writeJSON(w, http.StatusCreated, tx)
}

func (api *fakeAPI) returnBook(w http.ResponseWriter, r *http.Request) {
	id := pathID(r)
	api.mu.Lock()
	defer api.mu.Unlock()
	for i := range api.txs {
		tx := &api.txs[i]
		if tx.ID != id {
			continue
		}
		if !tx.ReturnedAt.IsZero() {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Book already returned"})
			return
		}
		tx.ReturnedAt = Timestamp{time.Now().UTC().Truncate(time.Second)}
		for j := range api.books {
			if api.books[j].ID == tx.BookID {
				api.books[j].AvailableCopies++
			}
		}
		writeJSON(w, http.StatusOK, tx)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"message": "Transaction not found"})
}

// ------------------ Client-side fixtures ------------------

// memStorage is a TokenStorage kept in memory.
type memStorage struct {
	mu       sync.Mutex
	token    string
	loadErr  error
	saveErr  error
	clearErr error
	clears   int
}

func (m *memStorage) LoadToken(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.loadErr
}

func (m *memStorage) SaveToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.token = token
	return nil
}

func (m *memStorage) ClearToken(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clears++
	if m.clearErr != nil {
		return m.clearErr
	}
	m.token = ""
	return nil
}

func (m *memStorage) Close() error { return nil }

func (m *memStorage) stored() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// eventLog records session events.
type eventLog struct {
	mu     sync.Mutex
	events []SessionEvent
}

func (e *eventLog) add(ev SessionEvent) {
	e.mu.Lock()
	e.events = append(e.events, ev)
	e.mu.Unlock()
}

func (e *eventLog) all() []SessionEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]SessionEvent(nil), e.events...)
}

// fixture is a logged-in console wired to a fake API.
type fixture struct {
	api      *fakeAPI
	store    *memStorage
	session  *Session
	events   *eventLog
	client   *Client
	notes    *RecordingNotifier
	confirms int
	answer   bool
	deps     Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		api:    newFakeAPI(t),
		store:  &memStorage{},
		events: &eventLog{},
		notes:  &RecordingNotifier{},
		answer: true,
	}
	f.session = NewSession(f.store, NopLogger())
	f.session.Subscribe(f.events.add)
	if err := f.session.Initialize(context.Background(), true); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := f.session.Login(context.Background(), f.api.token); err != nil {
		t.Fatalf("login: %v", err)
	}
	f.client = NewClientWithHTTP(f.api.baseURL(), f.api.srv.Client(), f.session, NopLogger())
	f.deps = Deps{
		Notifier: f.notes,
		Confirmer: ConfirmFunc(func(string) bool {
			f.confirms++
			return f.answer
		}),
		Log:      NopLogger(),
		PageSize: 10,
	}
	return f
}

func lastNotice(t *testing.T, n *RecordingNotifier) Notice {
	t.Helper()
	all := n.Notices()
	if len(all) == 0 {
		t.Fatalf("no notifications recorded")
	}
	return all[len(all)-1]
}
