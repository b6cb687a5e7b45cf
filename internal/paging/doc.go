// Package paging keeps server-paginated collections in memory.
//
// A Collection is bound to one endpoint and owns the query shape for it:
// filter, search and order maps, a fixed expand list and a page size. Pages
// are fetched through a Runner and merged into LoadedData by record id, so a
// record appears once no matter how often or in which order its page
// arrives.
//
// # State transitions
//
//	LoadNext(0)           page = last+1 (or 1), merge
//	RefreshData(false)    clear, page 1, merge
//	RefreshData(true)     page 1, merge over the visible rows
//	SetFilter/SetOrder    cancel endpoint, reset, page 1, merge
//	SetSearch             cancel endpoint, reset, page 1, replace
//	AddModel/RemoveModel  local edit, Total adjusted
//
// Changing filter, search or order bumps an internal generation counter.
// A page fetched under an older generation is dropped even if its request
// completed, which keeps rows from two query shapes apart.
//
// A page is not committed when the runner returned a placeholder, when
// ValidateResult rejected it, or when its generation is stale. In all three
// cases the caller gets a placeholder back and a nil error.
//
// # Concurrency
//
// All methods are safe for concurrent use. State lives in a state.Store; the
// lock is never held across network calls. Subscribers are signalled after
// every change, including the Refreshing flips around each request.
package paging
