// Package state provides the observable store behind every paginated collection.
//
// # Overview
//
// A Store holds one value (for ludex, a paging.State for a single entity
// collection) and mediates between the goroutines that load pages from the
// API and the UI that renders them. It replaces the implicit re-render hook of
// a UI framework with an explicit publish-subscribe contract.
//
// # Architecture
//
//	Loaders (tea.Cmd goroutines):       Consumer (UI):
//	┌────────────────────┐             ┌──────────────────────┐
//	│ runner.Run()       │             │ <-Subscribe() ch     │
//	│      ↓             │             │      ↓               │
//	│ store.Update(fn)   │────────────→│ store.Snapshot()     │
//	│                    │  (mutex +   │      ↓               │
//	│                    │   notify)   │ re-render            │
//	└────────────────────┘             └──────────────────────┘
//
// # Concurrency Model
//
//   - Update: write lock, applies the mutation and signals subscribers with
//     non-blocking sends before releasing it.
//   - Snapshot: read lock plus a clone, so callers never alias internal
//     slices or maps.
//   - View: read lock without a copy, for cheap inspections.
//
// The lock is never held across network I/O. A loader reads what it needs,
// releases the lock, performs the request and then commits through Update.
//
// # Notification Semantics
//
// Each subscriber owns a channel with a buffer of one. Bursts of updates
// coalesce into a single pending signal, and a slow subscriber never blocks
// writers. Subscribers re-read the latest value on wake-up instead of
// receiving deltas.
//
// # Testing Considerations
//
// NewStore with a nil clone function is fine for value types. Version lets
// tests assert that an operation did or did not commit.
package state
