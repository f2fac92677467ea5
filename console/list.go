package console

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/text/cases"
)

var errNoForm = errors.New("no form is open")

// Direction of a sort.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// SortState is the active sort; Field is "" when the source order is kept.
type SortState struct {
	Field string
	Dir   Direction
}

// Comparator orders two items, returning <0, 0 or >0.
type Comparator[T any] func(a, b T) int

// Schema describes how an entity is searched and sorted. The message fields
// override the default success notifications.
type Schema[T any] struct {
	Noun   string // capitalised singular, e.g. "Book"
	ID     func(T) int64
	Search func(T) []string
	Sorts  map[string]Comparator[T]

	CreatedMsg string
	UpdatedMsg string
	DeletedMsg string
}

func (s Schema[T]) message(custom, verb string) string {
	if custom != "" {
		return custom
	}
	return s.Noun + " " + verb + " successfully"
}

// Resource is the API surface a list controller drives.
type Resource[T, F any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, f F) error
	Update(ctx context.Context, id int64, f F) error
	Delete(ctx context.Context, id int64) error
}

// ResourceFuncs adapts plain functions to Resource. A nil function reports
// ErrUnsupported.
type ResourceFuncs[T, F any] struct {
	ListFn   func(ctx context.Context) ([]T, error)
	CreateFn func(ctx context.Context, f F) error
	UpdateFn func(ctx context.Context, id int64, f F) error
	DeleteFn func(ctx context.Context, id int64) error
}

func (r ResourceFuncs[T, F]) List(ctx context.Context) ([]T, error) {
	if r.ListFn == nil {
		return nil, ErrUnsupported
	}
	return r.ListFn(ctx)
}

func (r ResourceFuncs[T, F]) Create(ctx context.Context, f F) error {
	if r.CreateFn == nil {
		return ErrUnsupported
	}
	return r.CreateFn(ctx, f)
}

func (r ResourceFuncs[T, F]) Update(ctx context.Context, id int64, f F) error {
	if r.UpdateFn == nil {
		return ErrUnsupported
	}
	return r.UpdateFn(ctx, id, f)
}

func (r ResourceFuncs[T, F]) Delete(ctx context.Context, id int64) error {
	if r.DeleteFn == nil {
		return ErrUnsupported
	}
	return r.DeleteFn(ctx, id)
}

// Form is the create/edit form state. EditingID is 0 for a create form.
type Form[F any] struct {
	Open      bool
	EditingID int64
	Values    F
}

func (f Form[F]) Editing() bool { return f.EditingID != 0 }

// Page is one screen of the sorted view.
type Page[T any] struct {
	Items    []T
	Page     int
	Pages    int
	PageSize int
	Total    int // items after filtering
	From, To int // 1-based, inclusive; 0 when empty
}

// List is the generic list/filter/sort/paginate/CRUD controller. The source
// collection only changes through Load; every view is derived from it on read.
type List[T, F any] struct {
	mu      sync.Mutex
	schema  Schema[T]
	res     Resource[T, F]
	deps    Deps
	newForm func() F
	toForm  func(T) F

	items   []T
	loaded  bool
	loading bool
	query   string
	sort    SortState
	page    int
	errMsg  string
	seq     uint64
	form    Form[F]
}

// NewList wires a controller. newForm yields the defaults of an empty form;
// toForm fills a form from an existing item.
func NewList[T, F any](schema Schema[T], res Resource[T, F], deps Deps, newForm func() F, toForm func(T) F) *List[T, F] {
	return &List[T, F]{
		schema:  schema,
		res:     res,
		deps:    deps.withDefaults(),
		newForm: newForm,
		toForm:  toForm,
		page:    1,
		form:    Form[F]{Values: newForm()},
	}
}

// Load fetches the collection. On failure the previous collection stays in
// place and the error string is set. A response to an older Load than the
// latest issued one is discarded.
func (l *List[T, F]) Load(ctx context.Context) error {
	l.mu.Lock()
	l.seq++
	seq := l.seq
	l.loading = true
	l.mu.Unlock()

	items, err := l.res.List(ctx)

	l.mu.Lock()
	if seq != l.seq {
		l.mu.Unlock()
		l.deps.Log.Debugf("discarding stale %s list response (seq %d)", l.schema.Noun, seq)
		return nil
	}
	l.loading = false
	if err != nil {
		msg := UserMessage(err)
		l.errMsg = msg
		l.mu.Unlock()
		l.deps.Log.Errorf("load %s list: %v", l.schema.Noun, err)
		l.deps.Notifier.Error(msg)
		return err
	}
	if items == nil {
		items = []T{}
	}
	l.items = items
	l.loaded = true
	l.errMsg = ""
	l.mu.Unlock()
	return nil
}

// Items returns a copy of the source collection.
func (l *List[T, F]) Items() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

func (l *List[T, F]) Loaded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loaded
}

func (l *List[T, F]) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Err is the persisted, user-facing error of the last failed call, or "".
func (l *List[T, F]) Err() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.errMsg
}

// Find looks an item up in the loaded collection.
func (l *List[T, F]) Find(id int64) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, it := range l.items {
		if l.schema.ID(it) == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// ------------------ Query, sort, page ------------------

// SetQuery sets the filter string and returns to the first page.
func (l *List[T, F]) SetQuery(q string) {
	l.mu.Lock()
	l.query = q
	l.page = 1
	l.mu.Unlock()
}

func (l *List[T, F]) Query() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

// ToggleSort sorts by field ascending, or flips the direction when field is
// already the active sort.
func (l *List[T, F]) ToggleSort(field string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.schema.Sorts[field]; !ok {
		return l.unknownSort(field)
	}
	dir := Ascending
	if l.sort.Field == field && l.sort.Dir == Ascending {
		dir = Descending
	}
	l.sort = SortState{Field: field, Dir: dir}
	l.page = 1
	return nil
}

// SetSort sets field and direction explicitly.
func (l *List[T, F]) SetSort(field string, dir Direction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.schema.Sorts[field]; !ok {
		return l.unknownSort(field)
	}
	l.sort = SortState{Field: field, Dir: dir}
	l.page = 1
	return nil
}

func (l *List[T, F]) ClearSort() {
	l.mu.Lock()
	l.sort = SortState{}
	l.page = 1
	l.mu.Unlock()
}

func (l *List[T, F]) Sort() SortState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sort
}

// SortFields lists the fields the schema can sort by.
func (l *List[T, F]) SortFields() []string {
	fields := make([]string, 0, len(l.schema.Sorts))
	for f := range l.schema.Sorts {
		fields = append(fields, f)
	}
	slices.Sort(fields)
	return fields
}

func (l *List[T, F]) unknownSort(field string) error {
	return fmt.Errorf("cannot sort %ss by %q (fields: %s)", strings.ToLower(l.schema.Noun), field, strings.Join(l.SortFields(), ", "))
}

// SetPage moves to page n, clamped to the available pages.
func (l *List[T, F]) SetPage(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pages := pageCount(len(l.filteredLocked()), l.deps.PageSize)
	l.page = min(max(n, 1), pages)
}

// NextPage and PrevPage step through the view without leaving its bounds.
func (l *List[T, F]) NextPage() { l.SetPage(l.View().Page + 1) }
func (l *List[T, F]) PrevPage() { l.SetPage(l.View().Page - 1) }

// Filtered is the source subsequence matching the query.
func (l *List[T, F]) Filtered() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filteredLocked()
}

// Sorted is the filtered view in sort order.
func (l *List[T, F]) Sorted() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sortedLocked()
}

// View returns the current page of the sorted view.
func (l *List[T, F]) View() Page[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	sorted := l.sortedLocked()
	size := l.deps.PageSize
	pages := pageCount(len(sorted), size)
	page := min(max(l.page, 1), pages)

	start := (page - 1) * size
	end := min(start+size, len(sorted))
	p := Page[T]{
		Items:    slices.Clone(sorted[start:end]),
		Page:     page,
		Pages:    pages,
		PageSize: size,
		Total:    len(sorted),
	}
	if end > start {
		p.From, p.To = start+1, end
	}
	return p
}

func (l *List[T, F]) filteredLocked() []T {
	return filterItems(l.items, l.query, l.schema.Search)
}

func (l *List[T, F]) sortedLocked() []T {
	out := l.filteredLocked()
	if l.sort.Field == "" {
		return out
	}
	sortItems(out, l.schema.Sorts[l.sort.Field], l.schema.ID, l.sort.Dir)
	return out
}

func pageCount(n, size int) int {
	if n == 0 {
		return 1
	}
	return (n + size - 1) / size
}

// filterItems keeps, in order, the items where any searchable field contains
// q under Unicode case folding. An empty q keeps everything.
func filterItems[T any](items []T, q string, fields func(T) []string) []T {
	out := make([]T, 0, len(items))
	if q == "" {
		return append(out, items...)
	}
	fold := cases.Fold()
	needle := fold.String(q)
	for _, it := range items {
		for _, f := range fields(it) {
			if strings.Contains(fold.String(f), needle) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

// sortItems sorts in place. Ties fall back to the id so the order is total,
// and descending is the exact reverse of ascending.
func sortItems[T any](items []T, by Comparator[T], id func(T) int64, dir Direction) {
	slices.SortStableFunc(items, func(a, b T) int {
		c := by(a, b)
		if c == 0 {
			c = cmp.Compare(id(a), id(b))
		}
		if dir == Descending {
			return -c
		}
		return c
	})
}

// ------------------ Comparators ------------------

// ByText compares strings case-insensitively, then byte-wise.
func ByText[T any](get func(T) string) Comparator[T] {
	return func(a, b T) int {
		x, y := get(a), get(b)
		fold := cases.Fold()
		if c := strings.Compare(fold.String(x), fold.String(y)); c != 0 {
			return c
		}
		return strings.Compare(x, y)
	}
}

// ByNumber compares numerically.
func ByNumber[T any, N cmp.Ordered](get func(T) N) Comparator[T] {
	return func(a, b T) int { return cmp.Compare(get(a), get(b)) }
}

// ByTime compares chronologically; unset times sort first.
func ByTime[T any](get func(T) Timestamp) Comparator[T] {
	return func(a, b T) int { return get(a).Compare(get(b).Time) }
}

// ------------------ Form ------------------

// Form returns the current form state.
func (l *List[T, F]) Form() Form[F] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.form
}

// OpenCreate opens an empty form.
func (l *List[T, F]) OpenCreate() {
	l.mu.Lock()
	l.form = Form[F]{Open: true, Values: l.newForm()}
	l.mu.Unlock()
}

// OpenEdit opens the form pre-filled from a loaded item.
func (l *List[T, F]) OpenEdit(id int64) error {
	it, ok := l.Find(id)
	if !ok {
		return fmt.Errorf("%w: %s %d", ErrNoSuchItem, strings.ToLower(l.schema.Noun), id)
	}
	l.mu.Lock()
	l.form = Form[F]{Open: true, EditingID: id, Values: l.toForm(it)}
	l.mu.Unlock()
	return nil
}

// EditForm mutates the open form's values in place.
func (l *List[T, F]) EditForm(fn func(*F)) {
	l.mu.Lock()
	fn(&l.form.Values)
	l.mu.Unlock()
}

// SetForm replaces the open form's values.
func (l *List[T, F]) SetForm(f F) {
	l.mu.Lock()
	l.form.Values = f
	l.mu.Unlock()
}

// CloseForm discards the form and resets it to defaults.
func (l *List[T, F]) CloseForm() {
	l.mu.Lock()
	l.form = Form[F]{Values: l.newForm()}
	l.mu.Unlock()
}

// Submit sends the open form as a create or an update.
func (l *List[T, F]) Submit(ctx context.Context) error {
	f := l.Form()
	if !f.Open {
		return errNoForm
	}
	if f.Editing() {
		return l.Update(ctx, f.EditingID, f.Values)
	}
	return l.Create(ctx, f.Values)
}

// ------------------ Mutations ------------------

// Create submits a new item. On success the form is closed and reset and the
// list reloads from the API; the returned error is then the reload's. On
// failure the form stays open with the submitted values.
func (l *List[T, F]) Create(ctx context.Context, f F) error {
	if err := l.res.Create(ctx, f); err != nil {
		l.mutationFailed(0, f, "create", err)
		return err
	}
	return l.mutationSucceeded(ctx, l.schema.message(l.schema.CreatedMsg, "added"))
}

// Update submits changes to item id with the same contract as Create.
func (l *List[T, F]) Update(ctx context.Context, id int64, f F) error {
	if err := l.res.Update(ctx, id, f); err != nil {
		l.mutationFailed(id, f, "update", err)
		return err
	}
	return l.mutationSucceeded(ctx, l.schema.message(l.schema.UpdatedMsg, "updated"))
}

// Remove deletes item id after confirmation. A declined confirmation returns
// (false, nil) and changes nothing.
func (l *List[T, F]) Remove(ctx context.Context, id int64) (bool, error) {
	prompt := fmt.Sprintf("Are you sure you want to delete this %s?", strings.ToLower(l.schema.Noun))
	if !l.deps.Confirmer.Confirm(prompt) {
		l.deps.Log.Debugf("delete %s %d declined", l.schema.Noun, id)
		return false, nil
	}
	if err := l.res.Delete(ctx, id); err != nil {
		l.fail("delete", err)
		return false, err
	}
	l.deps.Notifier.Success(l.schema.message(l.schema.DeletedMsg, "deleted"))
	return true, l.Load(ctx)
}

func (l *List[T, F]) mutationSucceeded(ctx context.Context, msg string) error {
	l.settle(msg)
	return l.Load(ctx)
}

// settle closes and resets the form and reports msg, without reloading.
func (l *List[T, F]) settle(msg string) {
	l.mu.Lock()
	l.form = Form[F]{Values: l.newForm()}
	l.mu.Unlock()
	l.deps.Notifier.Success(msg)
}

func (l *List[T, F]) mutationFailed(id int64, f F, op string, err error) {
	l.mu.Lock()
	l.form = Form[F]{Open: true, EditingID: id, Values: f}
	l.mu.Unlock()
	l.fail(op, err)
}

func (l *List[T, F]) fail(op string, err error) {
	msg := UserMessage(err)
	l.mu.Lock()
	l.errMsg = msg
	l.mu.Unlock()
	l.deps.Log.Errorf("%s %s: %v", op, strings.ToLower(l.schema.Noun), err)
	l.deps.Notifier.Error(msg)
}
