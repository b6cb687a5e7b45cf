package table

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ludexapp/ludex/internal/catalog"
	"github.com/ludexapp/ludex/internal/paging"
)

// DefaultDebounce is how long filter input must settle before it is applied.
const DefaultDebounce = 300 * time.Millisecond

// FilterKind selects how a column's filter input is interpreted.
type FilterKind int

const (
	FilterNone FilterKind = iota
	// FilterContains matches a substring. Server-side it becomes a like search.
	FilterContains
	// FilterRange takes "min,max". Server-side it becomes a between search
	// with missing bounds defaulting to 0 and 100.
	FilterRange
	// FilterExact matches the whole value. Server-side it becomes filter[key].
	FilterExact
)

// Column describes one rendered column.
type Column[T paging.Record] struct {
	Title string
	// Key is the server field name used for filter, search and order.
	Key   string
	Width int // 0 shares the remaining width
	Value func(T) string
	// Number is used for range filters and sorting when set.
	Number   func(T) float64
	Filter   FilterKind
	Sortable bool
}

// Collection is the paging surface the table drives.
type Collection[T paging.Record] interface {
	State() paging.State[T]
	Subscribe() (<-chan struct{}, func())
	LoadNext(ctx context.Context, page int) (catalog.Page[T], error)
	SetFilter(ctx context.Context, key, value string) (catalog.Page[T], error)
	SetSearch(ctx context.Context, key string, term catalog.SearchTerm) (catalog.Page[T], error)
	SetOrder(ctx context.Context, key string, dir catalog.Direction) (catalog.Page[T], error)
}

var _ Collection[catalog.Platform] = (*paging.Collection[catalog.Platform])(nil)

// Selection is a caller-owned set of row ids. The table only reads it and
// reports toggles.
type Selection struct {
	Selected func(id int64) bool
	Toggle   func(id int64)
}

// Options configure a Model.
type Options[T paging.Record] struct {
	Context   context.Context
	Columns   []Column[T]
	Selection *Selection
	Debounce  time.Duration
	Styles    *Styles // nil uses DefaultStyles
	Width     int
	Height    int
}

type (
	debounceMsg struct {
		table int64
		seq   int
	}
	changedMsg struct{ table int64 }
	resultMsg  struct {
		table    int64
		loadMore bool
		err      error
	}
)

var nextID atomic.Int64

// Model renders a paging collection as a scrollable table.
type Model[T paging.Record] struct {
	id       int64
	ctx      context.Context
	coll     Collection[T]
	cols     []Column[T]
	sel      *Selection
	debounce time.Duration
	styles   Styles

	width, height  int
	cursor, offset int
	focus          int

	// input holds what the user typed per column; applied holds the subset
	// currently enforced client-side.
	input   map[int]string
	applied map[int]string
	dirty   map[int]struct{}
	seq     int

	sortCol int
	sortDir catalog.Direction

	loadingMore bool
	lastErr     error

	state paging.State[T]
	rows  []T

	changes     <-chan struct{}
	unsubscribe func()
}

// New binds a table to coll. Call Close when the table is discarded.
func New[T paging.Record](coll Collection[T], opts Options[T]) *Model[T] {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	styles := DefaultStyles()
	if opts.Styles != nil {
		styles = *opts.Styles
	}
	changes, unsubscribe := coll.Subscribe()
	m := &Model[T]{
		id:          nextID.Add(1),
		ctx:         ctx,
		coll:        coll,
		cols:        opts.Columns,
		sel:         opts.Selection,
		debounce:    debounce,
		styles:      styles,
		width:       opts.Width,
		height:      opts.Height,
		input:       map[int]string{},
		applied:     map[int]string{},
		dirty:       map[int]struct{}{},
		sortCol:     -1,
		changes:     changes,
		unsubscribe: unsubscribe,
	}
	m.sync()
	return m
}

// Init watches the collection and loads the first page if nothing has
// requested one yet.
func (m *Model[T]) Init() tea.Cmd {
	if m.state.Initiated {
		return m.Watch()
	}
	return tea.Batch(m.Watch(), m.run(true, func(ctx context.Context) error {
		_, err := m.coll.LoadNext(ctx, 0)
		return err
	}))
}

// Watch waits for the next collection change.
func (m *Model[T]) Watch() tea.Cmd {
	ch, id := m.changes, m.id
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return changedMsg{table: id}
	}
}

// Close stops watching the collection.
func (m *Model[T]) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Update handles the table's own messages and ignores everything else.
func (m *Model[T]) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case debounceMsg:
		if msg.table != m.id || msg.seq != m.seq {
			return nil
		}
		return m.flush()
	case changedMsg:
		if msg.table != m.id {
			return nil
		}
		m.sync()
		return tea.Batch(m.Watch(), m.maybeLoadMore())
	case resultMsg:
		if msg.table != m.id {
			return nil
		}
		if msg.loadMore {
			m.loadingMore = false
		}
		m.lastErr = msg.err
		m.sync()
		return m.maybeLoadMore()
	}
	return nil
}

// SetSize sets the rendered width and the total height including the header.
func (m *Model[T]) SetSize(width, height int) tea.Cmd {
	m.width, m.height = width, height
	m.clampCursor()
	return m.maybeLoadMore()
}

// SetStyles replaces the table styles.
func (m *Model[T]) SetStyles(s Styles) { m.styles = s }

// Rows returns the rows as displayed, after client-side filter and sort.
func (m *Model[T]) Rows() []T { return m.rows }

// State returns the collection snapshot the rows were derived from.
func (m *Model[T]) State() paging.State[T] { return m.state }

// Err returns the error from the most recent table-issued request.
func (m *Model[T]) Err() error { return m.lastErr }

// Current returns the row under the cursor.
func (m *Model[T]) Current() (T, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		var zero T
		return zero, false
	}
	return m.rows[m.cursor], true
}

// Exhaustive reports whether every record the server knows of is loaded, in
// which case filtering and sorting stay client-side.
func (m *Model[T]) Exhaustive() bool { return m.state.Exhaustive() }

// Columns returns the column definitions.
func (m *Model[T]) Columns() []Column[T] { return m.cols }

// Focus returns the focused column index.
func (m *Model[T]) Focus() int { return m.focus }

// FocusColumn focuses the column with key and reports whether it exists.
func (m *Model[T]) FocusColumn(key string) bool {
	for i, c := range m.cols {
		if c.Key == key {
			m.focus = i
			return true
		}
	}
	return false
}

// FocusNext moves the column focus right, wrapping around.
func (m *Model[T]) FocusNext() {
	if len(m.cols) > 0 {
		m.focus = (m.focus + 1) % len(m.cols)
	}
}

// FocusPrev moves the column focus left, wrapping around.
func (m *Model[T]) FocusPrev() {
	if len(m.cols) > 0 {
		m.focus = (m.focus - 1 + len(m.cols)) % len(m.cols)
	}
}

// FilterInput returns what was typed into column i's filter.
func (m *Model[T]) FilterInput(i int) string { return m.input[i] }

// MoveDown moves the cursor n rows down.
func (m *Model[T]) MoveDown(n int) tea.Cmd {
	m.cursor += n
	m.clampCursor()
	return m.maybeLoadMore()
}

// MoveUp moves the cursor n rows up.
func (m *Model[T]) MoveUp(n int) tea.Cmd {
	m.cursor -= n
	m.clampCursor()
	return nil
}

// GotoTop moves the cursor to the first row.
func (m *Model[T]) GotoTop() tea.Cmd {
	m.cursor = 0
	m.clampCursor()
	return nil
}

// GotoBottom moves the cursor to the last loaded row.
func (m *Model[T]) GotoBottom() tea.Cmd {
	m.cursor = len(m.rows) - 1
	m.clampCursor()
	return m.maybeLoadMore()
}

// ToggleSelected flips the selection of the row under the cursor.
func (m *Model[T]) ToggleSelected() {
	if m.sel == nil || m.sel.Toggle == nil {
		return
	}
	if row, ok := m.Current(); ok {
		m.sel.Toggle(row.RecordID())
	}
}

// SetFilter records new filter input for column i. It is applied once the
// input has been stable for the debounce interval.
func (m *Model[T]) SetFilter(i int, value string) tea.Cmd {
	if i < 0 || i >= len(m.cols) || m.cols[i].Filter == FilterNone {
		return nil
	}
	value = strings.TrimSpace(value)
	if value == "" {
		delete(m.input, i)
	} else {
		m.input[i] = value
	}
	m.dirty[i] = struct{}{}
	m.seq++
	id, seq := m.id, m.seq
	return tea.Tick(m.debounce, func(time.Time) tea.Msg {
		return debounceMsg{table: id, seq: seq}
	})
}

// ClearFilters drops every column filter.
func (m *Model[T]) ClearFilters() tea.Cmd {
	var cmds []tea.Cmd
	for i := range m.cols {
		if _, ok := m.input[i]; ok || m.serverFiltered(m.cols[i]) {
			cmds = append(cmds, m.SetFilter(i, ""))
		}
	}
	return tea.Batch(cmds...)
}

// CycleSort advances the focused column through ascending, descending and
// unsorted.
func (m *Model[T]) CycleSort() tea.Cmd {
	if m.focus < 0 || m.focus >= len(m.cols) || !m.cols[m.focus].Sortable {
		return nil
	}
	dir := catalog.Asc
	if m.sortCol == m.focus {
		switch m.sortDir {
		case catalog.Asc:
			dir = catalog.Desc
		case catalog.Desc:
			dir = ""
		}
	}
	return m.SortBy(m.cols[m.focus].Key, dir)
}

// SortBy orders the rows by the column with key. An empty dir removes the
// ordering.
func (m *Model[T]) SortBy(key string, dir catalog.Direction) tea.Cmd {
	col := -1
	for i, c := range m.cols {
		if c.Key == key && c.Sortable {
			col = i
		}
	}
	if col < 0 {
		return nil
	}
	prev := m.sortCol
	if dir == "" {
		m.sortCol, m.sortDir = -1, ""
	} else {
		m.sortCol, m.sortDir = col, dir
	}

	if m.Exhaustive() && len(m.state.Order) == 0 {
		m.rebuild()
		return nil
	}

	var ops []func(context.Context) error
	if prev >= 0 && prev != col {
		if _, ok := m.state.Order[m.cols[prev].Key]; ok {
			prevKey := m.cols[prev].Key
			ops = append(ops, func(ctx context.Context) error {
				_, err := m.coll.SetOrder(ctx, prevKey, "")
				return err
			})
		}
	}
	ops = append(ops, func(ctx context.Context) error {
		_, err := m.coll.SetOrder(ctx, key, dir)
		return err
	})
	m.rebuild()
	return m.run(false, ops...)
}

// SortState returns the sorted column index (-1 for none) and direction.
func (m *Model[T]) SortState() (int, catalog.Direction) { return m.sortCol, m.sortDir }

// SortKey returns the key of the sorted column, or "" when unsorted.
func (m *Model[T]) SortKey() (string, catalog.Direction) {
	if m.sortCol < 0 {
		return "", ""
	}
	return m.cols[m.sortCol].Key, m.sortDir
}

// FocusedFilter returns the title and filter kind of the focused column.
func (m *Model[T]) FocusedFilter() (string, FilterKind) {
	if m.focus < 0 || m.focus >= len(m.cols) {
		return "", FilterNone
	}
	return m.cols[m.focus].Title, m.cols[m.focus].Filter
}

// Status summarises the table's collection. Loaded counts the rows shown.
func (m *Model[T]) Status() paging.Status {
	return paging.Status{
		Loaded:              len(m.rows),
		Total:               m.state.Total,
		Refreshing:          m.state.Refreshing,
		InitialLoadComplete: m.state.InitialLoadComplete,
		HasAnotherPage:      m.state.HasAnotherPage(),
		LastError:           cmp.Or(m.lastErr, m.state.LastError),
	}
}

// flush applies every filter changed since the last flush, either in memory
// or through the collection.
func (m *Model[T]) flush() tea.Cmd {
	cols := make([]int, 0, len(m.dirty))
	for i := range m.dirty {
		cols = append(cols, i)
	}
	slices.Sort(cols)
	clear(m.dirty)

	var ops []func(context.Context) error
	for _, i := range cols {
		c := m.cols[i]
		value := m.input[i]
		if m.Exhaustive() && !m.serverFiltered(c) {
			if value == "" {
				delete(m.applied, i)
			} else {
				m.applied[i] = value
			}
			continue
		}
		delete(m.applied, i)
		ops = append(ops, m.serverFilter(c, value))
	}
	m.rebuild()
	if len(ops) == 0 {
		return m.maybeLoadMore()
	}
	return m.run(false, ops...)
}

func (m *Model[T]) serverFilter(c Column[T], value string) func(context.Context) error {
	return func(ctx context.Context) error {
		var err error
		switch c.Filter {
		case FilterExact:
			_, err = m.coll.SetFilter(ctx, c.Key, value)
		case FilterRange:
			lo, hi := splitRange(value)
			_, err = m.coll.SetSearch(ctx, c.Key, catalog.Between(lo, hi))
		default:
			_, err = m.coll.SetSearch(ctx, c.Key, catalog.Term(value))
		}
		return err
	}
}

// serverFiltered reports whether the collection's query already constrains c.
func (m *Model[T]) serverFiltered(c Column[T]) bool {
	if c.Filter == FilterExact {
		return m.state.Filter[c.Key] != ""
	}
	return !m.state.Search[c.Key].IsZero()
}

// run executes ops in order off the update loop and reports the first error.
func (m *Model[T]) run(loadMore bool, ops ...func(context.Context) error) tea.Cmd {
	ctx, id := m.ctx, m.id
	return func() tea.Msg {
		for _, op := range ops {
			if err := op(ctx); err != nil {
				return resultMsg{table: id, loadMore: loadMore, err: err}
			}
		}
		return resultMsg{table: id, loadMore: loadMore}
	}
}

// maybeLoadMore requests the next page when the last row is on screen.
func (m *Model[T]) maybeLoadMore() tea.Cmd {
	if m.loadingMore || !m.lastRowVisible() {
		return nil
	}
	if !m.state.HasAnotherPage() || m.state.Refreshing {
		return nil
	}
	m.loadingMore = true
	return m.run(true, func(ctx context.Context) error {
		_, err := m.coll.LoadNext(ctx, 0)
		return err
	})
}

func (m *Model[T]) lastRowVisible() bool {
	return m.offset+m.bodyHeight() >= len(m.rows)
}

func (m *Model[T]) bodyHeight() int {
	return max(m.height-1, 1)
}

func (m *Model[T]) sync() {
	m.state = m.coll.State()
	m.rebuild()
}

// rebuild derives the displayed rows from the snapshot.
func (m *Model[T]) rebuild() {
	rows := make([]T, 0, len(m.state.LoadedData))
	for _, rec := range m.state.LoadedData {
		if m.matches(rec) {
			rows = append(rows, rec)
		}
	}
	if m.sortCol >= 0 && len(m.state.Order) == 0 {
		c := m.cols[m.sortCol]
		slices.SortStableFunc(rows, func(a, b T) int {
			r := compareBy(c, a, b)
			if m.sortDir == catalog.Desc {
				return -r
			}
			return r
		})
	}
	m.rows = rows
	m.clampCursor()
}

func (m *Model[T]) matches(rec T) bool {
	for i, value := range m.applied {
		c := m.cols[i]
		switch c.Filter {
		case FilterContains:
			if !strings.Contains(strings.ToLower(c.Value(rec)), strings.ToLower(value)) {
				return false
			}
		case FilterExact:
			if !strings.EqualFold(c.Value(rec), value) {
				return false
			}
		case FilterRange:
			lo, hi := rangeBounds(value)
			n, ok := number(c, rec)
			if !ok || n < lo || n > hi {
				return false
			}
		}
	}
	return true
}

func (m *Model[T]) clampCursor() {
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	body := m.bodyHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+body {
		m.offset = m.cursor - body + 1
	}
	if limit := max(len(m.rows)-body, 0); m.offset > limit {
		m.offset = limit
	}
}

func compareBy[T paging.Record](c Column[T], a, b T) int {
	if c.Number != nil {
		return cmp.Compare(c.Number(a), c.Number(b))
	}
	return strings.Compare(strings.ToLower(c.Value(a)), strings.ToLower(c.Value(b)))
}

func number[T paging.Record](c Column[T], rec T) (float64, bool) {
	if c.Number != nil {
		return c.Number(rec), true
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(c.Value(rec)), 64)
	return n, err == nil
}

// splitRange splits "min,max" input. Either side may be empty.
func splitRange(value string) (string, string) {
	lo, hi, _ := strings.Cut(value, ",")
	return strings.TrimSpace(lo), strings.TrimSpace(hi)
}

// rangeBounds parses range input with the same defaults the server search
// uses for a missing bound.
func rangeBounds(value string) (float64, float64) {
	loText, hiText := splitRange(value)
	lo, err := strconv.ParseFloat(loText, 64)
	if err != nil {
		lo = 0
	}
	hi, err := strconv.ParseFloat(hiText, 64)
	if err != nil {
		hi = 100
	}
	return lo, hi
}
