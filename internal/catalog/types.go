package catalog

import (
	"encoding/json"
	"time"
)

// Page is the normalized page envelope returned by every collection endpoint.
type Page[T any] struct {
	Data        []T `json:"data"`
	Total       int `json:"total"`
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	PerPage     int `json:"per_page"`

	// Canceled marks a placeholder standing in for an aborted request.
	Canceled bool `json:"-"`
}

// RawPage is a page whose records have not been decoded yet.
type RawPage = Page[json.RawMessage]

// HasAnotherPage reports whether the server has pages after this one.
func (p Page[T]) HasAnotherPage() bool {
	return p.CurrentPage < p.LastPage
}

// Placeholder returns the empty page used in place of a canceled request.
func Placeholder[T any]() Page[T] {
	return Page[T]{Data: []T{}, Canceled: true}
}

// Decode converts a raw page into typed records.
func Decode[T any](raw RawPage) (Page[T], error) {
	out := Page[T]{
		Data:        make([]T, 0, len(raw.Data)),
		Total:       raw.Total,
		CurrentPage: raw.CurrentPage,
		LastPage:    raw.LastPage,
		PerPage:     raw.PerPage,
		Canceled:    raw.Canceled,
	}
	for _, msg := range raw.Data {
		var rec T
		if err := json.Unmarshal(msg, &rec); err != nil {
			return Page[T]{}, err
		}
		out.Data = append(out.Data, rec)
	}
	return out, nil
}

// PlatformGroup groups related platforms (e.g. a console family).
type PlatformGroup struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// RecordID implements paging.Record.
func (g PlatformGroup) RecordID() int64 { return g.ID }

// Platform is a gaming platform.
type Platform struct {
	ID              int64          `json:"id"`
	Name            string         `json:"name"`
	ShortName       string         `json:"short_name,omitempty"`
	TotalGames      int            `json:"total_games"`
	PlatformGroupID int64          `json:"platform_group_id,omitempty"`
	PlatformGroup   *PlatformGroup `json:"platform_group,omitempty"`
}

// RecordID implements paging.Record.
func (p Platform) RecordID() int64 { return p.ID }

// Release is a game as released on one platform.
type Release struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	PlatformID  int64     `json:"platform_id"`
	Platform    *Platform `json:"platform,omitempty"`
	ReleaseDate string    `json:"release_date,omitempty"`
	Rating      float64   `json:"rating"`
	Region      string    `json:"region,omitempty"`
}

// RecordID implements paging.Record.
func (r Release) RecordID() int64 { return r.ID }

// ReleasedOn parses ReleaseDate, returning the zero time when absent.
func (r Release) ReleasedOn() time.Time {
	return parseTime(r.ReleaseDate)
}

// Collection is a user-owned list of releases.
type Collection struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TotalItems  int    `json:"total_items"`
	Public      bool   `json:"public"`
}

// RecordID implements paging.Record.
func (c Collection) RecordID() int64 { return c.ID }

// CollectionItem is one release inside a collection.
type CollectionItem struct {
	ID           int64    `json:"id"`
	CollectionID int64    `json:"collection_id"`
	ReleaseID    int64    `json:"release_id"`
	Release      *Release `json:"release,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	AddedAt      string   `json:"added_at,omitempty"`
}

// RecordID implements paging.Record.
func (i CollectionItem) RecordID() int64 { return i.ID }

// ParsedAddedAt returns AddedAt as time.Time when possible.
func (i CollectionItem) ParsedAddedAt() time.Time {
	return parseTime(i.AddedAt)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}
