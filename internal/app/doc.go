// Package app is the composition root for ludex.
//
// # Overview
//
// The package loads configuration, opens the log file and wires the client
// stack shared by the TUI and the CLI commands:
//
//	┌──────────────┐
//	│ Bootstrap()  │
//	└──────┬───────┘
//	       ├─────> config.Load()         file + LUDEX_* environment
//	       ├─────> logging.Open()        logfmt file logger
//	       ├─────> auth.NewSource()      bearer token, refreshed near expiry
//	       ├─────> catalog.NewClient()   rate limited GET client
//	       ├─────> catalog.NewMutator()  retrying write client
//	       ├─────> catalog.NewRunner()   per-(endpoint, page) cancellation
//	       └─────> session.New()         shared paging collections
//
// Run then warms the persistent collections concurrently, starts the
// background refresher and hands control to the UI until the user quits.
//
// # Warm-up
//
// Warm primes every persistent collection in parallel. Failures are joined
// and logged; the UI shows them per view, so startup continues.
//
// # Background Refresh
//
// When refresh_seconds is positive, StartRefresher reloads page 1 of every
// persistent collection on that interval with persist semantics, so visible
// rows never disappear. Consecutive failures double the wait up to 30s; a
// success resets it. An interval longer than 30s is never shortened.
//
// # CLI Listing
//
// List renders one collection as a table for `ludex list`. The search,
// filter and order flags become a single paging.Shape so only one request is
// issued before any extra pages requested with --all.
package app
