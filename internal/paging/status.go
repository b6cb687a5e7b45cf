package paging

import "context"

// Status is a record-free summary of a collection, used by the status bar,
// the CLI and background jobs that do not care about the record type.
type Status struct {
	Endpoint            string
	Loaded              int
	Total               int
	Refreshing          bool
	InitialLoadComplete bool
	HasAnotherPage      bool
	LastError           error
}

// Source is the type-erased view of a Collection.
type Source interface {
	Endpoint() string
	Prime(ctx context.Context) error
	Reload(ctx context.Context) error
	Status() Status
}

var _ Source = (*Collection[PageRecord])(nil)

// PageRecord is a bare record carrying only an id. It is mostly useful in
// tests and for endpoints whose payload is not inspected.
type PageRecord struct {
	ID int64 `json:"id"`
}

// RecordID implements Record.
func (r PageRecord) RecordID() int64 { return r.ID }
