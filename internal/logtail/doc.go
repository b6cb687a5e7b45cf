// Package logtail reads the tail of the ludex log file for the Activity view.
//
// # Overview
//
// The application logs in logfmt through charmbracelet/log. This package
// reads the last N lines of that file and decodes them into entries the TUI
// can filter and render. It never writes to the file.
//
// # Reading Log Files
//
// Read uses a ring buffer of maxLines entries, so memory stays at
// O(maxLines) regardless of file size, and lines come back oldest first:
//
//	1. Allocate ring buffer of size maxLines
//	2. For each line in file:
//	   - Store line at current index
//	   - Increment index (wrapping at maxLines)
//	   - Track total lines seen
//	3. If total < maxLines:
//	   - Return first 'count' entries from buffer
//	4. If total >= maxLines:
//	   - Return buffer starting from current index (oldest line)
//
// A non-positive maxLines reads the whole file.
//
// # Parsing
//
// Parse decodes one line with go-logfmt. The time, level and msg keys are
// lifted into Entry fields; every other pair is kept in order in Fields.
// Lines that are not logfmt are returned with the whole line as Message.
//
//	time=2026-03-01T10:00:00Z level=info msg="page committed" endpoint=/platforms page=1
//
// # Filtering
//
// Filter drops entries below a minimum level and keeps only lines containing
// a substring. Entries with an unknown level always pass the level check.
//
// # Error Handling
//
// Read returns nil, nil for a missing file. Other I/O errors are wrapped.
// Parse never fails.
package logtail
