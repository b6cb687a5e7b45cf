package ui

import (
	"strconv"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ludexapp/ludex/internal/catalog"
	"github.com/ludexapp/ludex/internal/paging"
	"github.com/ludexapp/ludex/internal/ui/table"
)

type view int

const (
	viewPlatforms view = iota
	viewCollections
	viewReleases
	viewItems
	viewActivity
	viewCount
)

var viewNames = [viewCount]string{"Platforms", "Collections", "Releases", "Items", "Activity"}

// prefKeys name each table view in the preferences file.
var prefKeys = [viewCount]string{"platforms", "collections", "releases", "items", ""}

// pane is the record-independent surface of a table.Model.
type pane interface {
	Init() tea.Cmd
	Watch() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
	View() string
	Close()
	SetSize(width, height int) tea.Cmd
	SetStyles(s table.Styles)
	Status() paging.Status
	Err() error

	MoveDown(n int) tea.Cmd
	MoveUp(n int) tea.Cmd
	GotoTop() tea.Cmd
	GotoBottom() tea.Cmd
	FocusNext()
	FocusPrev()
	FocusColumn(key string) bool
	Focus() int
	FocusedFilter() (string, table.FilterKind)

	SetFilter(i int, value string) tea.Cmd
	FilterInput(i int) string
	ClearFilters() tea.Cmd
	CycleSort() tea.Cmd
	SortBy(key string, dir catalog.Direction) tea.Cmd
	SortKey() (string, catalog.Direction)
	ToggleSelected()
}

var _ pane = (*table.Model[catalog.Platform])(nil)

// newPane builds a table over coll and returns it with the command that
// starts it, applying the saved sort for v when there is one.
func newPane[T paging.Record](m *Model, v view, coll table.Collection[T], cols []table.Column[T], sel *table.Selection) (*table.Model[T], tea.Cmd) {
	styles := m.theme.Table()
	t := table.New(coll, table.Options[T]{
		Context:   m.ctx,
		Columns:   cols,
		Selection: sel,
		Styles:    &styles,
	})
	sized := t.SetSize(m.bodySize())
	if key, dir, ok := m.prefs.DefaultOrder(prefKeys[v]); ok {
		if cmd := t.SortBy(key, dir); cmd != nil {
			return t, tea.Batch(t.Watch(), cmd, sized)
		}
	}
	return t, tea.Batch(t.Init(), sized)
}

func platformColumns() []table.Column[catalog.Platform] {
	return []table.Column[catalog.Platform]{
		{Title: "Name", Key: "name", Value: func(p catalog.Platform) string { return p.Name },
			Filter: table.FilterContains, Sortable: true},
		{Title: "Short", Key: "short_name", Width: 8, Value: func(p catalog.Platform) string { return p.ShortName },
			Filter: table.FilterContains, Sortable: true},
		{Title: "Group", Key: "platform_group_id", Width: 14, Value: func(p catalog.Platform) string {
			if p.PlatformGroup != nil {
				return p.PlatformGroup.Name
			}
			return ""
		}},
		{Title: "Games", Key: "total_games", Width: 7, Value: func(p catalog.Platform) string { return strconv.Itoa(p.TotalGames) },
			Number: func(p catalog.Platform) float64 { return float64(p.TotalGames) }, Filter: table.FilterRange, Sortable: true},
	}
}

func collectionColumns() []table.Column[catalog.Collection] {
	return []table.Column[catalog.Collection]{
		{Title: "Name", Key: "name", Width: 24, Value: func(c catalog.Collection) string { return c.Name },
			Filter: table.FilterContains, Sortable: true},
		{Title: "Description", Key: "description", Value: func(c catalog.Collection) string { return c.Description },
			Filter: table.FilterContains},
		{Title: "Items", Key: "total_items", Width: 7, Value: func(c catalog.Collection) string { return strconv.Itoa(c.TotalItems) },
			Number: func(c catalog.Collection) float64 { return float64(c.TotalItems) }, Filter: table.FilterRange, Sortable: true},
		{Title: "Public", Key: "public", Width: 7, Value: func(c catalog.Collection) string { return strconv.FormatBool(c.Public) },
			Filter: table.FilterExact},
	}
}

func releaseColumns() []table.Column[catalog.Release] {
	return []table.Column[catalog.Release]{
		{Title: "Name", Key: "name", Value: func(r catalog.Release) string { return r.Name },
			Filter: table.FilterContains, Sortable: true},
		{Title: "Platform", Key: "platform_id", Width: 16, Value: func(r catalog.Release) string {
			if r.Platform != nil {
				return r.Platform.Name
			}
			return strconv.FormatInt(r.PlatformID, 10)
		}},
		{Title: "Released", Key: "release_date", Width: 10, Value: func(r catalog.Release) string { return r.ReleaseDate },
			Filter: table.FilterContains, Sortable: true},
		{Title: "Rating", Key: "rating", Width: 8, Value: func(r catalog.Release) string { return strconv.FormatFloat(r.Rating, 'f', -1, 64) },
			Number: func(r catalog.Release) float64 { return r.Rating }, Filter: table.FilterRange, Sortable: true},
		{Title: "Region", Key: "region", Width: 6, Value: func(r catalog.Release) string { return r.Region },
			Filter: table.FilterExact, Sortable: true},
	}
}

func itemColumns() []table.Column[catalog.CollectionItem] {
	return []table.Column[catalog.CollectionItem]{
		{Title: "Release", Key: "release_id", Value: func(i catalog.CollectionItem) string {
			if i.Release != nil {
				return i.Release.Name
			}
			return strconv.FormatInt(i.ReleaseID, 10)
		}},
		{Title: "Notes", Key: "notes", Value: func(i catalog.CollectionItem) string { return i.Notes },
			Filter: table.FilterContains},
		{Title: "Added", Key: "added_at", Width: 20, Value: func(i catalog.CollectionItem) string { return i.AddedAt },
			Filter: table.FilterContains, Sortable: true},
	}
}
