package paging

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/url"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/ludexapp/ludex/internal/catalog"
	"github.com/ludexapp/ludex/internal/state"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Record is anything with a stable identifier.
type Record interface {
	RecordID() int64
}

// Runner issues page requests. *catalog.Runner implements it.
//
// RunIf must call current under the same lock that registers the request and
// resolve to a placeholder when it reports false, so a load from an older
// query never aborts the newer one.
type Runner interface {
	RunIf(ctx context.Context, endpoint string, q catalog.Query, current func() bool) (catalog.RawPage, error)
	CancelEndpoint(endpoint string)
}

var _ Runner = (*catalog.Runner)(nil)

// PageInfo describes the most recently committed page.
type PageInfo struct {
	CurrentPage int
	LastPage    int
	PerPage     int
}

// State is the observable state of one Collection.
type State[T Record] struct {
	LoadedData          []T
	Total               int
	LastLoadedPage      *PageInfo
	Filter              map[string]string
	Search              map[string]catalog.SearchTerm
	Order               map[string]catalog.Direction
	Expands             []string
	Limit               int
	Refreshing          bool
	InitialLoadComplete bool
	Initiated           bool
	LoadAll             bool
	LastError           error

	pending    int
	generation uint64
}

// HasAnotherPage reports whether the last committed page is not the final one.
func (s State[T]) HasAnotherPage() bool {
	return s.LastLoadedPage != nil && s.LastLoadedPage.CurrentPage < s.LastLoadedPage.LastPage
}

// NoResults reports whether a committed load found nothing.
func (s State[T]) NoResults() bool {
	return s.InitialLoadComplete && s.Total == 0
}

// Exhaustive reports whether every record the server knows of is loaded.
func (s State[T]) Exhaustive() bool {
	return s.InitialLoadComplete && len(s.LoadedData) >= s.Total
}

func cloneState[T Record](s State[T]) State[T] {
	out := s
	out.LoadedData = slices.Clone(s.LoadedData)
	out.Filter = maps.Clone(s.Filter)
	out.Search = maps.Clone(s.Search)
	out.Order = maps.Clone(s.Order)
	out.Expands = slices.Clone(s.Expands)
	if s.LastLoadedPage != nil {
		info := *s.LastLoadedPage
		out.LastLoadedPage = &info
	}
	return out
}

// Options configures a Collection.
type Options[T Record] struct {
	Endpoint string
	Limit    int
	Expands  []string
	// Extra holds static query parameters sent with every request.
	Extra   url.Values
	LoadAll bool
	// ValidateResult may reject a fetched page; rejected pages are not
	// committed and the caller receives a placeholder.
	ValidateResult func(catalog.Page[T]) bool
	Logger         *log.Logger
}

// Collection is a server-paginated, locally merged list of records bound to
// one endpoint.
type Collection[T Record] struct {
	runner   Runner
	endpoint string
	extra    url.Values
	loadAll  bool
	validate func(catalog.Page[T]) bool
	logger   *log.Logger
	store    *state.Store[State[T]]
}

// New builds a Collection. Nothing is fetched until the first load call.
func New[T Record](runner Runner, opts Options[T]) *Collection[T] {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	initial := State[T]{
		LoadedData: []T{},
		Filter:     map[string]string{},
		Search:     map[string]catalog.SearchTerm{},
		Order:      map[string]catalog.Direction{},
		Expands:    slices.Clone(opts.Expands),
		Limit:      limit,
		LoadAll:    opts.LoadAll,
	}
	return &Collection[T]{
		runner:   runner,
		endpoint: opts.Endpoint,
		extra:    opts.Extra,
		loadAll:  opts.LoadAll,
		validate: opts.ValidateResult,
		logger:   logger.With("endpoint", opts.Endpoint),
		store:    state.NewStore(initial, cloneState[T]),
	}
}

// Endpoint returns the endpoint the collection is bound to.
func (c *Collection[T]) Endpoint() string { return c.endpoint }

// State returns a snapshot that shares nothing with the collection.
func (c *Collection[T]) State() State[T] { return c.store.Snapshot() }

// Version increases with every state change.
func (c *Collection[T]) Version() uint64 { return c.store.Version() }

// Subscribe returns a channel signalled after state changes and a cancel
// function that closes it.
func (c *Collection[T]) Subscribe() (<-chan struct{}, func()) { return c.store.Subscribe() }

// LoadNext loads page, or the page after the last committed one when page is
// zero. Results are merged by id. On the last page it returns a placeholder
// without a request.
func (c *Collection[T]) LoadNext(ctx context.Context, page int) (catalog.Page[T], error) {
	if page <= 0 {
		var last *PageInfo
		var more bool
		c.store.View(func(s State[T]) {
			last = s.LastLoadedPage
			more = s.HasAnotherPage()
		})
		switch {
		case last == nil:
			page = 1
		case !more:
			return catalog.Placeholder[T](), nil
		default:
			page = last.CurrentPage + 1
		}
	}
	return c.fetch(ctx, page, false)
}

// RefreshData reloads page 1. Unless persist is set the loaded rows are
// cleared first; with persist they stay visible and the new page is merged.
func (c *Collection[T]) RefreshData(ctx context.Context, persist bool) (catalog.Page[T], error) {
	if !persist {
		c.store.Update(resetPagination[T])
	}
	return c.fetch(ctx, 1, false)
}

// SetFilter sets filter[key]=value, or removes the key when value is empty,
// then reloads from page 1.
func (c *Collection[T]) SetFilter(ctx context.Context, key, value string) (catalog.Page[T], error) {
	return c.requery(ctx, false, func(s *State[T]) {
		if value == "" {
			delete(s.Filter, key)
			return
		}
		s.Filter[key] = value
	})
}

// SetSearch sets search[key], or removes the key when term is zero, then
// reloads from page 1 replacing the loaded rows.
func (c *Collection[T]) SetSearch(ctx context.Context, key string, term catalog.SearchTerm) (catalog.Page[T], error) {
	return c.requery(ctx, true, func(s *State[T]) {
		if term.IsZero() {
			delete(s.Search, key)
			return
		}
		s.Search[key] = term
	})
}

// SetOrder sets order[key], or removes the key when dir is empty, then
// reloads from page 1.
func (c *Collection[T]) SetOrder(ctx context.Context, key string, dir catalog.Direction) (catalog.Page[T], error) {
	return c.requery(ctx, false, func(s *State[T]) {
		if dir == "" {
			delete(s.Order, key)
			return
		}
		s.Order[key] = dir
	})
}

// Shape is a complete set of query parameters for Reshape.
type Shape struct {
	Filter map[string]string
	Search map[string]catalog.SearchTerm
	Order  map[string]catalog.Direction
}

// Reshape replaces filter, search and order at once and reloads page 1 with a
// single request, replacing the loaded rows. Nil maps clear their parameter.
func (c *Collection[T]) Reshape(ctx context.Context, shape Shape) (catalog.Page[T], error) {
	return c.requery(ctx, true, func(s *State[T]) {
		s.Filter = map[string]string{}
		for k, v := range shape.Filter {
			if v != "" {
				s.Filter[k] = v
			}
		}
		s.Search = map[string]catalog.SearchTerm{}
		for k, v := range shape.Search {
			if !v.IsZero() {
				s.Search[k] = v
			}
		}
		s.Order = map[string]catalog.Direction{}
		for k, v := range shape.Order {
			if v != "" {
				s.Order[k] = v
			}
		}
	})
}

// AddModel replaces the record with the same id in place, or prepends rec
// and counts it in Total.
func (c *Collection[T]) AddModel(rec T) {
	c.store.Update(func(s *State[T]) {
		id := rec.RecordID()
		for i := range s.LoadedData {
			if s.LoadedData[i].RecordID() == id {
				s.LoadedData[i] = rec
				return
			}
		}
		s.LoadedData = append([]T{rec}, s.LoadedData...)
		s.Total++
	})
}

// RemoveModel drops the record with rec's id and decrements Total. It reports
// whether a record was removed. When the id is not among the loaded rows
// nothing changes, Total included, since the record may not match the
// current query.
func (c *Collection[T]) RemoveModel(rec T) bool {
	removed := false
	c.store.Update(func(s *State[T]) {
		id := rec.RecordID()
		before := len(s.LoadedData)
		s.LoadedData = slices.DeleteFunc(s.LoadedData, func(r T) bool { return r.RecordID() == id })
		if len(s.LoadedData) == before {
			return
		}
		removed = true
		s.Total = max(s.Total-1, 0)
	})
	return removed
}

// GetModel looks id up among the loaded records.
func (c *Collection[T]) GetModel(id int64) (T, bool) {
	var (
		found T
		ok    bool
	)
	c.store.View(func(s State[T]) {
		for _, r := range s.LoadedData {
			if r.RecordID() == id {
				found, ok = r, true
				return
			}
		}
	})
	return found, ok
}

// Prime loads the first page unless a load has already been started.
func (c *Collection[T]) Prime(ctx context.Context) error {
	var initiated bool
	c.store.View(func(s State[T]) { initiated = s.Initiated })
	if initiated {
		return nil
	}
	_, err := c.LoadNext(ctx, 0)
	return err
}

// Reload refreshes page 1 keeping the current rows visible.
func (c *Collection[T]) Reload(ctx context.Context) error {
	_, err := c.RefreshData(ctx, true)
	return err
}

// Status summarises the collection without its records.
func (c *Collection[T]) Status() Status {
	var st Status
	c.store.View(func(s State[T]) {
		st = Status{
			Endpoint:            c.endpoint,
			Loaded:              len(s.LoadedData),
			Total:               s.Total,
			Refreshing:          s.Refreshing,
			InitialLoadComplete: s.InitialLoadComplete,
			HasAnotherPage:      s.HasAnotherPage(),
			LastError:           s.LastError,
		}
	})
	return st
}

func (c *Collection[T]) requery(ctx context.Context, replace bool, mutate func(*State[T])) (catalog.Page[T], error) {
	c.runner.CancelEndpoint(c.endpoint)
	c.store.Update(func(s *State[T]) {
		mutate(s)
		resetPagination(s)
		s.generation++
	})
	return c.fetch(ctx, 1, replace)
}

func resetPagination[T Record](s *State[T]) {
	s.LoadedData = []T{}
	s.Total = 0
	s.LastLoadedPage = nil
	s.InitialLoadComplete = false
}

// fetch loads one page and, for load-all collections, keeps going until the
// last page has been committed.
func (c *Collection[T]) fetch(ctx context.Context, page int, replace bool) (catalog.Page[T], error) {
	got, err := c.load(ctx, page, replace)
	if err != nil || got.Canceled || !c.loadAll || !got.HasAnotherPage() {
		return got, err
	}
	return c.LoadNext(ctx, 0)
}

func (c *Collection[T]) load(ctx context.Context, page int, replace bool) (catalog.Page[T], error) {
	var (
		q   catalog.Query
		gen uint64
	)
	c.store.Update(func(s *State[T]) {
		s.pending++
		s.Refreshing = true
		s.Initiated = true
		gen = s.generation
		q = catalog.Query{
			Page:    page,
			Limit:   s.Limit,
			Expands: slices.Clone(s.Expands),
			Filter:  maps.Clone(s.Filter),
			Search:  maps.Clone(s.Search),
			Order:   maps.Clone(s.Order),
			Extra:   c.extra,
		}
	})

	current := func() bool {
		var ok bool
		c.store.View(func(s State[T]) { ok = s.generation == gen })
		return ok
	}
	raw, err := c.runner.RunIf(ctx, c.endpoint, q, current)
	var typed catalog.Page[T]
	if err == nil && !raw.Canceled {
		typed, err = catalog.Decode[T](raw)
		if err != nil {
			err = fmt.Errorf("decode %s page %d: %w", c.endpoint, page, err)
		}
	}
	accepted := err == nil && !raw.Canceled
	if accepted && c.validate != nil && !c.validate(typed) {
		c.logger.Debug("page rejected by validator", "page", page)
		accepted = false
	}

	committed := false
	c.store.Update(func(s *State[T]) {
		s.pending--
		s.Refreshing = s.pending > 0
		if s.generation != gen {
			return
		}
		if err != nil {
			s.LastError = err
			return
		}
		if !accepted {
			return
		}
		commit(s, typed, replace)
		committed = true
	})

	if err != nil {
		c.logger.Warn("page load failed", "page", page, "err", err)
		return catalog.Page[T]{}, err
	}
	if !committed {
		return catalog.Placeholder[T](), nil
	}
	c.logger.Debug("page committed", "page", typed.CurrentPage, "rows", len(typed.Data), "total", typed.Total)
	return typed, nil
}

func commit[T Record](s *State[T], page catalog.Page[T], replace bool) {
	if replace {
		s.LoadedData = Merge(nil, page.Data)
	} else {
		s.LoadedData = Merge(s.LoadedData, page.Data)
	}
	s.Total = page.Total
	s.LastLoadedPage = &PageInfo{
		CurrentPage: page.CurrentPage,
		LastPage:    page.LastPage,
		PerPage:     page.PerPage,
	}
	s.InitialLoadComplete = true
	s.LastError = nil
}

// Merge folds incoming into existing by id. A record whose id is already
// present replaces it in place; new ids are appended in arrival order. The
// result holds each id once and never aliases existing.
func Merge[T Record](existing, incoming []T) []T {
	out := make([]T, 0, len(existing)+len(incoming))
	index := make(map[int64]int, len(existing)+len(incoming))
	for _, batch := range [][]T{existing, incoming} {
		for _, rec := range batch {
			id := rec.RecordID()
			if i, ok := index[id]; ok {
				out[i] = rec
				continue
			}
			index[id] = len(out)
			out = append(out, rec)
		}
	}
	return out
}
