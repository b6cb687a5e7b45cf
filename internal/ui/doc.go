// Package ui provides the terminal interface for browsing the game catalog.
//
// # Architecture Overview
//
// The UI is a single Bubble Tea program. Model owns one table.Model per view.
// Each table.Model is bound to a paging.Collection from the session. Tables
// subscribe to their collection and re-render when a load commits. Filters
// and sorts run in memory once a collection has every record. Before that
// they go back to the API.
//
// # Package Structure
//
//   - ui.go: Options, the Mutator contract and Run
//   - model.go: root model, key dispatch, prompts and collection mutations
//   - panes.go: per-view column definitions and table construction
//   - activity.go: log tail view fed by logtail
//   - render.go: header, status bar and command bar
//   - theme.go, surface.go: color themes and background-safe bar rendering
//
// # Views
//
//   - Platforms: every platform, with multi-select to scope releases
//   - Collections: the user's collections
//   - Releases: releases on the selected platforms (opened with enter)
//   - Items: the items of one collection (opened with enter)
//   - Activity: the tail of the log file
//
// # Key Bindings
//
//   - Tab / Shift+Tab: cycle views
//   - j/k, g/G, PgUp/PgDn: move the cursor
//   - ←/→: move column focus
//   - /: filter by name, f: filter the focused column, x: clear filters
//   - s: cycle sort on the focused column
//   - Space: select a platform, Enter: drill down
//   - n: new collection, d: delete, a: add release to the open collection
//   - r: refresh, T: cycle theme, ?: help, q or Ctrl+C: quit
//
// Theme and per-view sort choices persist through the prefs package.
package ui
